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
	"context"
	"errors"
	"io"
	"log"
	"math/rand"
	"os"
)

func DefaultConfig() Config {
	return Config{
		ClockRate:  DEFAULT_CLOCK_RATE,
		DelayRate:  DEFAULT_TIMER_RATE,
		SoundRate:  DEFAULT_TIMER_RATE,
		StackLimit: DEFAULT_STACK_LIMIT,
	}
}

func randomByte() byte {
	return byte(rand.Intn(256))
}

// New builds a machine in the ready state with the font and program loaded.
func New(program []byte, cfg Config) (*Machine, error) {
	if cfg.Display == nil {
		return nil, ErrNoDisplay
	}

	mc := &Machine{
		Display:    cfg.Display,
		Controls:   cfg.Controls,
		Random:     cfg.Random,
		clock:      NewClock(cfg.ClockRate),
		delayClock: NewClock(cfg.DelayRate),
		soundClock: NewClock(cfg.SoundRate),
		done:       make(chan struct{}),
		logger:     cfg.Logger,
	}

	if mc.Random == nil {
		mc.Random = randomByte
	}

	if mc.logger == nil {
		mc.logger = log.New(io.Discard, "", 0)
	}

	mc.State.Stack.Limit = cfg.StackLimit

	if err := mc.LoadProgram(program); err != nil {
		return nil, err
	}

	return mc, nil
}

// Open builds a machine from a program image on disk.
func Open(path string, cfg Config) (*Machine, error) {
	info, err := os.Stat(path)

	if errors.Is(err, os.ErrNotExist) {
		return nil, &ProgramPathError{path, "Provided path does not exist"}
	} else if err != nil {
		return nil, err
	} else if info.IsDir() {
		return nil, &ProgramPathError{path, "Provided path is a directory"}
	}

	file, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	mc, err := New(nil, cfg)

	if err != nil {
		return nil, err
	}

	if err := mc.LoadBin(file); err != nil {
		return nil, err
	}

	return mc, nil
}

func (mc *Machine) LoadBin(reader io.Reader) error {
	program, err := io.ReadAll(io.LimitReader(reader, PROGRAM_SIZE_MAX+1))

	if err != nil {
		return err
	}

	if len(program) > PROGRAM_SIZE_MAX {
		return &ProgramSizeError{len(program), PROGRAM_SIZE_MAX}
	}

	return mc.LoadProgram(program)
}

// LoadProgram resets the machine state and copies program to
// MEMSPACE_PROGRAM. Only a machine that has not been started can be loaded.
func (mc *Machine) LoadProgram(program []byte) error {
	if len(program) > PROGRAM_SIZE_MAX {
		return &ProgramSizeError{len(program), PROGRAM_SIZE_MAX}
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.status != STATUS_READY {
		return ErrNotReady
	}

	mc.State.Reset()
	mc.cycle = 0

	return mc.State.Memory.Load(int(MEMSPACE_PROGRAM), program)
}

// Observers are notified in the order they were added.
func (mc *Machine) AddObservers(observers ...Observer) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.observers = append(mc.observers, observers...)
}

func (mc *Machine) Status() Status {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	return mc.status
}

// Err returns the fatal condition that halted the machine, if any.
func (mc *Machine) Err() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	return mc.err
}

func (mc *Machine) Cycle() uint64 {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	return mc.cycle
}

// Done is closed once the machine halts.
func (mc *Machine) Done() <-chan struct{} {
	return mc.done
}

func (mc *Machine) SoundActive() bool {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	return mc.status == STATUS_RUNNING && mc.State.SoundTimer > 0
}

// Inspect runs fn with exclusive access to the machine state. It must not be
// called from within fn.
func (mc *Machine) Inspect(fn func(state *MachineState)) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	fn(&mc.State)
}

// Start begins running the execution, delay and sound clocks. Cancelling
// ctx halts the machine.
func (mc *Machine) Start(ctx context.Context) error {
	mc.mutex.Lock()

	if mc.status != STATUS_READY {
		mc.mutex.Unlock()
		return ErrNotReady
	}

	mc.status = STATUS_RUNNING

	mc.delayClock.Start(ctx, mc.TickDelay)
	mc.soundClock.Start(ctx, mc.TickSound)
	mc.clock.Start(ctx, func() {
		// Fatal errors are kept in mc.err
		mc.Step()
	})

	mc.logger.Printf(
		"Machine started (%d Hz, delay %d Hz, sound %d Hz)",
		mc.clock.Rate,
		mc.delayClock.Rate,
		mc.soundClock.Rate,
	)

	mc.mutex.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			mc.Halt()
		case <-mc.done:
		}
	}()

	return nil
}

// Wait blocks until the machine halts and every clock has finished its last
// tick. It returns the fatal condition, or nil for a requested halt. Wait
// must not be called from an observer.
func (mc *Machine) Wait() error {
	<-mc.done

	mc.clock.Wait()
	mc.delayClock.Wait()
	mc.soundClock.Wait()

	return mc.Err()
}

// Run starts the machine and waits for it to halt. A machine whose execution
// clock is disabled would never execute an instruction, so Run rejects it
// with ErrNoClock; use Start and Step to drive such a machine by hand.
func (mc *Machine) Run(ctx context.Context) error {
	if mc.clock.Rate <= 0 {
		return ErrNoClock
	}

	if err := mc.Start(ctx); err != nil {
		return err
	}

	return mc.Wait()
}

// Halt stops all clocks. A halted machine never runs again.
func (mc *Machine) Halt() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.halt(nil)
}

func (mc *Machine) halt(err error) {
	if mc.status == STATUS_HALTED {
		return
	}

	mc.status = STATUS_HALTED
	mc.err = err

	mc.clock.Stop()
	mc.delayClock.Stop()
	mc.soundClock.Stop()

	mc.haltOnce.Do(func() { close(mc.done) })

	if err != nil {
		mc.logger.Printf("Machine halted after %d cycles: %v", mc.cycle, err)
	} else {
		mc.logger.Printf("Machine halted after %d cycles", mc.cycle)
	}
}

// Step executes a single cycle: fetch, decode, dispatch, then notify
// observers. A fatal condition halts the machine and is returned.
func (mc *Machine) Step() error {
	mc.mutex.Lock()

	if mc.status == STATUS_HALTED {
		mc.mutex.Unlock()
		return ErrHalted
	}

	opcode, instruction, err := mc.execute()

	if err != nil {
		mc.halt(err)
		mc.mutex.Unlock()
		return err
	}

	observers := mc.observers

	var ctx *Context
	if len(observers) > 0 {
		ctx = mc.snapshot(opcode, instruction)
	}

	mc.mutex.Unlock()

	// Observers run outside the lock so a blocking observer stalls
	// execution without stalling the timers
	shouldHalt := false

	for _, observer := range observers {
		observer.OnCycle(ctx)

		if observer.ShouldHalt() {
			shouldHalt = true
		}
	}

	if shouldHalt {
		mc.Halt()
	}

	return nil
}

func (mc *Machine) execute() (uint16, Instruction, error) {
	pc := int(mc.State.PC)

	if pc < 0 || pc+1 >= MEMORY_SIZE {
		return 0, INSTRUCTION_UNSUPPORTED, &AddressError{"fetch", pc}
	}

	opcode := uint16(mc.State.Memory[pc])<<8 | uint16(mc.State.Memory[pc+1])
	mc.State.PC += 2

	instruction := Decode(opcode)

	if instruction == INSTRUCTION_UNSUPPORTED {
		return opcode, instruction, &UnsupportedError{opcode, uint16(pc)}
	}

	err := Dispatch(instruction, opcode, &ActionContext{
		Display:   mc.Display,
		Controls:  mc.Controls,
		Random:    mc.Random,
		Stack:     &mc.State.Stack,
		Registers: &mc.State.Registers,
		Memory:    &mc.State.Memory,
	})

	if err != nil {
		return opcode, instruction, err
	}

	mc.cycle++

	return opcode, instruction, nil
}

func (mc *Machine) snapshot(opcode uint16, instruction Instruction) *Context {
	return &Context{
		Memory:      mc.State.Memory.Snapshot(),
		V:           mc.State.V,
		I:           mc.State.I,
		PC:          mc.State.PC,
		DelayTimer:  mc.State.DelayTimer,
		SoundTimer:  mc.State.SoundTimer,
		StackDepth:  mc.State.Stack.Len(),
		Opcode:      opcode,
		Instruction: instruction,
		Cycle:       mc.cycle,
	}
}

func (mc *Machine) TickDelay() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.status != STATUS_HALTED && mc.State.DelayTimer > 0 {
		mc.State.DelayTimer--
	}
}

func (mc *Machine) TickSound() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.status != STATUS_HALTED && mc.State.SoundTimer > 0 {
		mc.State.SoundTimer--
	}
}
