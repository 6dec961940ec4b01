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

package machine

import (
	"log"
	"sync"
)

type Status uint
type Instruction uint8

// Monochrome pixel grid written by CLS and DRAW. Pixels are 0 or 1.
type Display interface {
	GetPixel(x, y int) byte
	SetPixel(x, y int, value byte)
	Clear()
}

// Keypad queries. PollKey never blocks; it reports a key pressed since the
// previous poll, if any.
type Controls interface {
	IsKeyPressed(key byte) bool
	IsKeyNotPressed(key byte) bool
	PollKey() (byte, bool)
}

// Observer is notified once per executed cycle, after the instruction's
// effects are applied. ShouldHalt is polled right after each OnCycle.
type Observer interface {
	OnCycle(ctx *Context)
	ShouldHalt() bool
}

type Registers struct {
	V          [REGISTER_COUNT]byte
	I          uint16
	PC         uint16
	DelayTimer byte
	SoundTimer byte
}

type Memory [MEMORY_SIZE]byte

type Stack struct {
	Limit   int
	entries []uint16
}

type MachineState struct {
	Registers
	Memory Memory
	Stack  Stack
}

// Context is the read-only view handed to observers. It is a value copy and
// stays valid after OnCycle returns.
//
// Building one copies all of Memory (4 KiB) every cycle. No Context is built
// while no observers are attached, so leave the debugger and scripts off at
// high clock rates if that copy matters.
type Context struct {
	Memory      Memory
	V           [REGISTER_COUNT]byte
	I           uint16
	PC          uint16
	DelayTimer  byte
	SoundTimer  byte
	StackDepth  int
	Opcode      uint16
	Instruction Instruction
	Cycle       uint64
}

type Config struct {
	// Cycles per second of the execution clock. 0 disables it.
	ClockRate int
	// Decrements per second of the delay and sound timers.
	DelayRate int
	SoundRate int

	// Maximum return addresses held by the stack. 0 means unbounded.
	// DefaultConfig caps it at DEFAULT_STACK_LIMIT (16), the depth most
	// programs are written for; deeper nesting is then a fatal StackError.
	StackLimit int

	Display  Display
	Controls Controls

	// Source for RAND. Defaults to a uniform byte generator.
	Random func() byte

	Logger *log.Logger
}

type Machine struct {
	State MachineState

	Display  Display
	Controls Controls
	Random   func() byte

	mutex     sync.Mutex
	status    Status
	err       error
	cycle     uint64
	observers []Observer

	clock      *Clock
	delayClock *Clock
	soundClock *Clock

	done     chan struct{}
	haltOnce sync.Once
	logger   *log.Logger
}
