// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package agent provides machine observers that run alongside a program:
// a cycle limit, an execution trace and Lua scripts.
package agent

import (
	"log"

	"github.com/lassandro/gochip8/pkg/disasm"
	"github.com/lassandro/gochip8/pkg/machine"
)

// Limit requests a halt once Cycles cycles have been observed.
type Limit struct {
	Cycles uint64

	seen uint64
}

func (l *Limit) OnCycle(ctx *machine.Context) {
	l.seen++
}

func (l *Limit) ShouldHalt() bool {
	return l.seen >= l.Cycles
}

// Trace logs every executed cycle.
type Trace struct {
	// Defaults to the standard logger
	Logger *log.Logger
}

func (tr *Trace) OnCycle(ctx *machine.Context) {
	logger := tr.Logger

	if logger == nil {
		logger = log.Default()
	}

	logger.Printf(
		"%8d  %04X  %-18s PC=%#04x I=%#04x",
		ctx.Cycle,
		ctx.Opcode,
		disasm.Disassemble(ctx.Opcode),
		ctx.PC,
		ctx.I,
	)
}

func (tr *Trace) ShouldHalt() bool {
	return false
}
