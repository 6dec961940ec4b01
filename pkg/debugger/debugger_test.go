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

package debugger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/host"
	"github.com/lassandro/gochip8/pkg/machine"
)

const testSource = `.ORIG 0x200
START	SET V0, 1
	SET V1, 2
	SET V2, 3
	LDA DATA
	STRD V2
	LDRD V1
	DRAW V0, V1, 2
LOOP	JMP LOOP
DATA	.BLKB 4
`

func newDebugMachine(
	t *testing.T,
	dbg *debugger.Debugger,
) (*machine.Machine, *assembler.SymTable) {
	t.Helper()

	symtable := assembler.NewSymTable("test.asm")
	program, errs := assembler.AssembleChip8Source(
		strings.NewReader(testSource), symtable,
	)
	require.Empty(t, errs)

	cfg := machine.DefaultConfig()
	cfg.Display = host.NewFramebuffer()

	mc, err := machine.New(program, cfg)
	require.NoError(t, err)

	mc.AddObservers(dbg)

	return mc, symtable
}

func step(t *testing.T, mc *machine.Machine, count int) {
	t.Helper()

	for i := 0; i < count; i++ {
		require.NoError(t, mc.Step())
	}
}

func TestBreakpoint(t *testing.T) {
	var hits []uint16

	dbg := &debugger.Debugger{
		Breakpoints: []debugger.Breakpoint{{Addr: 0x204}},
		HandleBreak: func(dbg *debugger.Debugger, ctx *machine.Context) {
			hits = append(hits, ctx.PC)
		},
	}

	mc, _ := newDebugMachine(t, dbg)
	step(t, mc, 5)

	assert.Equal(t, []uint16{0x204}, hits)
}

func TestSingleStep(t *testing.T) {
	var hits []uint16

	dbg := &debugger.Debugger{
		HandleBreak: func(dbg *debugger.Debugger, ctx *machine.Context) {
			hits = append(hits, ctx.PC)
		},
	}
	dbg.Break.Store(true)

	mc, _ := newDebugMachine(t, dbg)
	step(t, mc, 3)

	assert.Equal(t, []uint16{0x202, 0x204, 0x206}, hits)

	dbg.Break.Store(false)
	step(t, mc, 1)

	assert.Len(t, hits, 3)
}

func TestQuit(t *testing.T) {
	dbg := &debugger.Debugger{
		HandleBreak: func(dbg *debugger.Debugger, ctx *machine.Context) {
			dbg.Quit()
		},
	}
	dbg.Break.Store(true)

	mc, _ := newDebugMachine(t, dbg)
	step(t, mc, 1)

	assert.True(t, dbg.ShouldHalt())
	assert.Equal(t, machine.STATUS_HALTED, mc.Status())
	assert.NoError(t, mc.Err())
}

func TestWatchpoints(t *testing.T) {
	type access struct {
		Kind string
		Addr uint16
		PC   uint16
	}

	// DATA follows eight instructions
	const data = 0x210

	var accesses []access

	dbg := &debugger.Debugger{
		Watchpoints: []debugger.Watchpoint{
			{Addr: data + 2, Type: debugger.WriteWatch},
			{Addr: data + 1, Type: debugger.ReadWatch},
			{Addr: data, Type: debugger.ReadWriteWatch},
		},
		HandleRead: func(addr uint16, dbg *debugger.Debugger, ctx *machine.Context) {
			accesses = append(accesses, access{"read", addr, ctx.PC})
		},
		HandleWrite: func(addr uint16, dbg *debugger.Debugger, ctx *machine.Context) {
			accesses = append(accesses, access{"write", addr, ctx.PC})
		},
	}

	mc, _ := newDebugMachine(t, dbg)
	step(t, mc, 7)

	assert.Equal(t, []access{
		// STRD V2
		{"write", data, 0x20A},
		{"write", data + 2, 0x20A},
		// LDRD V1
		{"read", data, 0x20C},
		{"read", data + 1, 0x20C},
		// DRAW V0, V1, 2
		{"read", data, 0x20E},
		{"read", data + 1, 0x20E},
	}, accesses)
}

func TestAccesses(t *testing.T) {
	t.Run("Draw", func(t *testing.T) {
		reads, writes := debugger.Accesses(&machine.Context{
			Opcode:      0xD013,
			Instruction: machine.INSTRUCTION_DRAW,
			I:           0x300,
		})

		assert.Equal(t, []uint16{0x300, 0x301, 0x302}, reads)
		assert.Empty(t, writes)
	})

	t.Run("Decimal", func(t *testing.T) {
		reads, writes := debugger.Accesses(&machine.Context{
			Opcode:      0xF533,
			Instruction: machine.INSTRUCTION_STDR,
			I:           0x300,
		})

		assert.Empty(t, reads)
		assert.Equal(t, []uint16{0x300, 0x301, 0x302}, writes)
	})

	t.Run("ClippedAtEndOfMemory", func(t *testing.T) {
		reads, _ := debugger.Accesses(&machine.Context{
			Opcode:      0xFF65,
			Instruction: machine.INSTRUCTION_LDRD,
			I:           0xFFE,
		})

		assert.Equal(t, []uint16{0xFFE, 0xFFF}, reads)
	})

	t.Run("NoMemoryAccess", func(t *testing.T) {
		reads, writes := debugger.Accesses(&machine.Context{
			Opcode:      0x6001,
			Instruction: machine.INSTRUCTION_SET,
		})

		assert.Empty(t, reads)
		assert.Empty(t, writes)
	})
}

func TestPrintSource(t *testing.T) {
	t.Run("SymbolTable", func(t *testing.T) {
		var out bytes.Buffer

		dbg := &debugger.Debugger{Output: &out}
		mc, symtable := newDebugMachine(t, dbg)

		dbg.SymTable = symtable
		dbg.Source = strings.NewReader(testSource)

		mc.Inspect(func(state *machine.MachineState) {
			dbg.PrintSource(&state.Memory, 0x202, 2)
		})

		assert.Contains(t, out.String(), "[0x0202]")
		assert.Contains(t, out.String(), "SET V1, 2")
		assert.Contains(t, out.String(), "[0x0204]")
		assert.NotContains(t, out.String(), "SET V0, 1")
	})

	t.Run("UnknownAddress", func(t *testing.T) {
		var out bytes.Buffer

		dbg := &debugger.Debugger{Output: &out}
		mc, symtable := newDebugMachine(t, dbg)

		dbg.SymTable = symtable
		dbg.Source = strings.NewReader(testSource)

		mc.Inspect(func(state *machine.MachineState) {
			dbg.PrintSource(&state.Memory, 0x203, 2)
		})

		assert.Contains(t, out.String(), "No instruction found")
	})

	t.Run("Disassembly", func(t *testing.T) {
		var out bytes.Buffer

		dbg := &debugger.Debugger{Output: &out}
		mc, symtable := newDebugMachine(t, dbg)

		dbg.SymTable = symtable

		mc.Inspect(func(state *machine.MachineState) {
			dbg.PrintSource(&state.Memory, 0x200, 2)
		})

		assert.Contains(t, out.String(), "START")
		assert.Contains(t, out.String(), "SET V0, 0x01")
		assert.Contains(t, out.String(), "SET V1, 0x02")
		assert.NotContains(t, out.String(), "SET V2")
	})
}

func TestPrintMem(t *testing.T) {
	var out bytes.Buffer

	dbg := &debugger.Debugger{Output: &out}
	mc, _ := newDebugMachine(t, dbg)

	mc.Inspect(func(state *machine.MachineState) {
		dbg.PrintMem(&state.Memory, 0x200, 2)
	})

	assert.Contains(t, out.String(), "[0x0200]")
	assert.Contains(t, out.String(), "0x60")
	assert.Contains(t, out.String(), "0x01")

	out.Reset()

	mc.Inspect(func(state *machine.MachineState) {
		dbg.PrintMem(&state.Memory, 0xFFE, 16)
	})

	assert.Contains(t, out.String(), "[0x0ffe]")
	assert.NotContains(t, out.String(), "[0x1006]")
}

func TestPrintRegs(t *testing.T) {
	var out bytes.Buffer

	dbg := &debugger.Debugger{Output: &out}

	reg := machine.Registers{I: 0x2A0, PC: 0x20E, DelayTimer: 7}
	reg.V[0xA] = 0x42

	dbg.PrintRegs(&reg, []uint16{0x204, 0x30A})

	assert.Contains(t, out.String(), "VA:")
	assert.Contains(t, out.String(), "0x42")
	assert.Contains(t, out.String(), "0x02a0")
	assert.Contains(t, out.String(), "0x020e")
	assert.Contains(t, out.String(), "0x0204 0x030a")
}

func TestLabels(t *testing.T) {
	var out bytes.Buffer

	dbg := &debugger.Debugger{Output: &out}
	_, symtable := newDebugMachine(t, dbg)

	addr, ok := dbg.LookupLabel("LOOP")
	assert.False(t, ok)

	dbg.SymTable = symtable

	addr, ok = dbg.LookupLabel("LOOP")
	assert.True(t, ok)
	assert.Equal(t, uint16(0x20E), addr)

	dbg.PrintLabels()

	listing := out.String()
	assert.Less(t, strings.Index(listing, "START"), strings.Index(listing, "LOOP"))
	assert.Less(t, strings.Index(listing, "LOOP"), strings.Index(listing, "DATA"))
}

func TestDump(t *testing.T) {
	var out bytes.Buffer

	dbg := &debugger.Debugger{}
	mc, _ := newDebugMachine(t, dbg)

	mc.Inspect(func(state *machine.MachineState) {
		dbg.Dump(&out, state)
	})

	assert.Contains(t, out.String(), "digraph")
}
