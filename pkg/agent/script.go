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

package agent

import (
	"errors"
	"fmt"
	"log"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/lassandro/gochip8/pkg/machine"
)

var ErrNoCycleHandler = errors.New("Script does not define on_cycle")

type ScriptError struct {
	Cycle uint64
	Err   error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("Script failed on cycle %d: %v", e.Cycle, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Script is an observer driven by a Lua program. The program must define a
// global on_cycle(ctx) function; it is called after every cycle with a
// table describing the snapshot:
//
//	ctx.pc, ctx.i, ctx.opcode, ctx.cycle, ctx.dt, ctx.st, ctx.depth
//	ctx.instruction   mnemonic of the executed instruction
//	ctx.v[0..15]      general purpose registers
//
// The script may call halt() or return true to stop the machine, and
// peek(addr) to read a byte of the snapshot's memory. A runtime error in
// the script also stops the machine and is kept in Err.
type Script struct {
	state   *lua.LState
	handler *lua.LFunction
	current *machine.Context
	halt    bool
	err     error
}

func newScript(logger *log.Logger) *Script {
	if logger == nil {
		logger = log.Default()
	}

	sc := &Script{state: lua.NewState()}

	sc.state.SetGlobal("halt", sc.state.NewFunction(func(L *lua.LState) int {
		sc.halt = true
		return 0
	}))

	sc.state.SetGlobal("peek", sc.state.NewFunction(func(L *lua.LState) int {
		addr := L.CheckInt(1)

		if sc.current == nil || addr < 0 || addr >= machine.MEMORY_SIZE {
			L.ArgError(1, "address out of range")
			return 0
		}

		L.Push(lua.LNumber(sc.current.Memory[addr]))
		return 1
	}))

	sc.state.SetGlobal("log", sc.state.NewFunction(func(L *lua.LState) int {
		logger.Println(L.CheckString(1))
		return 0
	}))

	return sc
}

func (sc *Script) bind() error {
	handler, ok := sc.state.GetGlobal("on_cycle").(*lua.LFunction)

	if !ok {
		sc.state.Close()
		return ErrNoCycleHandler
	}

	sc.handler = handler
	return nil
}

// NewScript compiles and runs source once, then binds its on_cycle handler.
func NewScript(source string, logger *log.Logger) (*Script, error) {
	sc := newScript(logger)

	if err := sc.state.DoString(source); err != nil {
		sc.state.Close()
		return nil, err
	}

	if err := sc.bind(); err != nil {
		return nil, err
	}

	return sc, nil
}

func OpenScript(path string, logger *log.Logger) (*Script, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	sc := newScript(logger)

	if err := sc.state.DoFile(path); err != nil {
		sc.state.Close()
		return nil, err
	}

	if err := sc.bind(); err != nil {
		return nil, err
	}

	return sc, nil
}

func (sc *Script) Close() {
	sc.state.Close()
}

// Err returns the runtime error that stopped the script, if any.
func (sc *Script) Err() error {
	return sc.err
}

func (sc *Script) table(ctx *machine.Context) *lua.LTable {
	tbl := sc.state.NewTable()

	tbl.RawSetString("pc", lua.LNumber(ctx.PC))
	tbl.RawSetString("i", lua.LNumber(ctx.I))
	tbl.RawSetString("opcode", lua.LNumber(ctx.Opcode))
	tbl.RawSetString("instruction", lua.LString(ctx.Instruction.String()))
	tbl.RawSetString("cycle", lua.LNumber(ctx.Cycle))
	tbl.RawSetString("dt", lua.LNumber(ctx.DelayTimer))
	tbl.RawSetString("st", lua.LNumber(ctx.SoundTimer))
	tbl.RawSetString("depth", lua.LNumber(ctx.StackDepth))

	v := sc.state.NewTable()

	for i, value := range ctx.V {
		v.RawSetInt(i, lua.LNumber(value))
	}

	tbl.RawSetString("v", v)

	return tbl
}

func (sc *Script) OnCycle(ctx *machine.Context) {
	if sc.halt {
		return
	}

	sc.current = ctx
	defer func() { sc.current = nil }()

	err := sc.state.CallByParam(lua.P{
		Fn:      sc.handler,
		NRet:    1,
		Protect: true,
	}, sc.table(ctx))

	if err != nil {
		sc.err = &ScriptError{ctx.Cycle, err}
		sc.halt = true
		return
	}

	ret := sc.state.Get(-1)
	sc.state.Pop(1)

	if lua.LVAsBool(ret) {
		sc.halt = true
	}
}

func (sc *Script) ShouldHalt() bool {
	return sc.halt
}
