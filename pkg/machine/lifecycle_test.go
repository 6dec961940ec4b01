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

package machine_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/gochip8/pkg/host"
	"github.com/lassandro/gochip8/pkg/machine"
)

type recorder struct {
	mutex    sync.Mutex
	name     string
	log      *[]string
	contexts []machine.Context
	haltAt   uint64
	halt     bool
}

func (rec *recorder) OnCycle(ctx *machine.Context) {
	rec.mutex.Lock()
	defer rec.mutex.Unlock()

	if rec.log != nil {
		*rec.log = append(*rec.log, rec.name)
	}

	rec.contexts = append(rec.contexts, *ctx)

	if rec.haltAt != 0 && ctx.Cycle >= rec.haltAt {
		rec.halt = true
	}
}

func (rec *recorder) ShouldHalt() bool {
	rec.mutex.Lock()
	defer rec.mutex.Unlock()

	return rec.halt
}

func (rec *recorder) count() int {
	rec.mutex.Lock()
	defer rec.mutex.Unlock()

	return len(rec.contexts)
}

func TestNew(t *testing.T) {
	t.Run("NoDisplay", func(t *testing.T) {
		_, err := machine.New(nil, machine.DefaultConfig())
		assert.ErrorIs(t, err, machine.ErrNoDisplay)
	})

	t.Run("InitialState", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x1200})

		assert.Equal(t, machine.STATUS_READY, mc.Status())
		assert.Zero(t, mc.Cycle())

		mc.Inspect(func(st *machine.MachineState) {
			assert.Equal(t, machine.MEMSPACE_PROGRAM, st.PC)
			assert.Equal(t, machine.FONT[:], st.Memory[:len(machine.FONT)])
			assert.Equal(t, byte(0x12), st.Memory[0x200])
			assert.Equal(t, byte(0x00), st.Memory[0x201])
			assert.Zero(t, st.Stack.Len())
		})
	})

	t.Run("ProgramTooLarge", func(t *testing.T) {
		cfg := machine.DefaultConfig()
		cfg.Display = host.NewFramebuffer()

		_, err := machine.New(make([]byte, machine.PROGRAM_SIZE_MAX+1), cfg)

		var sizeErr *machine.ProgramSizeError
		require.ErrorAs(t, err, &sizeErr)
		assert.Equal(t, machine.PROGRAM_SIZE_MAX+1, sizeErr.Size)
	})

	t.Run("ProgramFillsMemory", func(t *testing.T) {
		cfg := machine.DefaultConfig()
		cfg.Display = host.NewFramebuffer()

		_, err := machine.New(make([]byte, machine.PROGRAM_SIZE_MAX), cfg)
		assert.NoError(t, err)
	})
}

func TestOpen(t *testing.T) {
	cfg := machine.DefaultConfig()
	cfg.Display = host.NewFramebuffer()

	dir := t.TempDir()

	t.Run("Missing", func(t *testing.T) {
		_, err := machine.Open(filepath.Join(dir, "missing.ch8"), cfg)

		var pathErr *machine.ProgramPathError
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "Provided path does not exist", pathErr.Reason)
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := machine.Open(dir, cfg)

		var pathErr *machine.ProgramPathError
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "Provided path is a directory", pathErr.Reason)
	})

	t.Run("TooLarge", func(t *testing.T) {
		path := filepath.Join(dir, "large.ch8")
		require.NoError(t, os.WriteFile(path, make([]byte, 4000), 0o644))

		_, err := machine.Open(path, cfg)

		var sizeErr *machine.ProgramSizeError
		assert.ErrorAs(t, err, &sizeErr)
	})

	t.Run("Valid", func(t *testing.T) {
		path := filepath.Join(dir, "valid.ch8")
		require.NoError(t, os.WriteFile(path, []byte{0x6A, 0x42}, 0o644))

		mc, err := machine.Open(path, cfg)
		require.NoError(t, err)
		require.NoError(t, mc.Step())

		mc.Inspect(func(st *machine.MachineState) {
			assert.Equal(t, byte(0x42), st.V[0xA])
		})
	})
}

func TestLoadBin(t *testing.T) {
	mc, _, _ := newTestMachine(t, nil)

	err := mc.LoadBin(bytes.NewReader(make([]byte, machine.PROGRAM_SIZE_MAX+10)))

	var sizeErr *machine.ProgramSizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, machine.PROGRAM_SIZE_MAX+1, sizeErr.Size)

	require.NoError(t, mc.LoadBin(bytes.NewReader([]byte{0x00, 0xE0})))

	mc.Halt()
	assert.ErrorIs(t, mc.LoadProgram([]byte{0x00, 0xE0}), machine.ErrNotReady)
}

func TestFatal(t *testing.T) {
	t.Run("ReturnWithEmptyStack", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x6101, 0x00EE, 0x6102})

		rec := &recorder{}
		mc.AddObservers(rec)

		require.NoError(t, mc.Step())

		err := mc.Step()

		var stackErr *machine.StackError
		require.ErrorAs(t, err, &stackErr)
		assert.Equal(t, "pop", stackErr.Op)
		assert.Equal(t, uint16(0x202), stackErr.PC)

		assert.Equal(t, machine.STATUS_HALTED, mc.Status())
		assert.Equal(t, err, mc.Err())
		assert.Equal(t, uint64(1), mc.Cycle())

		// The failing cycle is not reported
		assert.Equal(t, 1, rec.count())

		assert.ErrorIs(t, mc.Step(), machine.ErrHalted)

		mc.Inspect(func(st *machine.MachineState) {
			assert.Equal(t, byte(0x01), st.V[1])
		})

		select {
		case <-mc.Done():
		default:
			t.Fatal("Done not closed after fatal cycle")
		}
	})

	t.Run("StackOverflow", func(t *testing.T) {
		// CALL 0x200 forever
		mc, _, _ := newTestMachine(t, []uint16{0x2200})

		for i := 0; i < machine.DEFAULT_STACK_LIMIT; i++ {
			require.NoError(t, mc.Step())
		}

		var stackErr *machine.StackError
		require.ErrorAs(t, mc.Step(), &stackErr)
		assert.Equal(t, "push", stackErr.Op)
		assert.Equal(t, machine.DEFAULT_STACK_LIMIT, stackErr.Depth)
	})

	t.Run("UnboundedStack", func(t *testing.T) {
		cfg := machine.Config{Display: host.NewFramebuffer()}

		mc, err := machine.New(programBytes([]uint16{0x2200}), cfg)
		require.NoError(t, err)

		for i := 0; i < 100; i++ {
			require.NoError(t, mc.Step())
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x6101, 0x5121})

		require.NoError(t, mc.Step())

		var unsupportedErr *machine.UnsupportedError
		require.ErrorAs(t, mc.Step(), &unsupportedErr)
		assert.Equal(t, uint16(0x5121), unsupportedErr.Opcode)
		assert.Equal(t, uint16(0x202), unsupportedErr.PC)
	})

	t.Run("MemoryOutOfRange", func(t *testing.T) {
		// LDA 0xFFE, STRD V2
		mc, _, _ := newTestMachine(t, []uint16{0xAFFE, 0xF255})

		require.NoError(t, mc.Step())

		var addrErr *machine.AddressError
		require.ErrorAs(t, mc.Step(), &addrErr)
		assert.Equal(t, "write", addrErr.Op)
		assert.Equal(t, 0x1000, addrErr.Addr)
	})

	t.Run("FetchOutOfRange", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x1FFF})

		require.NoError(t, mc.Step())

		var addrErr *machine.AddressError
		require.ErrorAs(t, mc.Step(), &addrErr)
		assert.Equal(t, "fetch", addrErr.Op)
	})
}

func TestTimers(t *testing.T) {
	mc, _, _ := newTestMachine(t, nil)

	mc.Inspect(func(st *machine.MachineState) {
		st.DelayTimer = 3
		st.SoundTimer = 1
	})

	for i := 0; i < 5; i++ {
		mc.TickDelay()
		mc.TickSound()
	}

	mc.Inspect(func(st *machine.MachineState) {
		assert.Zero(t, st.DelayTimer)
		assert.Zero(t, st.SoundTimer)
	})

	mc.Inspect(func(st *machine.MachineState) {
		st.DelayTimer = 3
	})

	mc.Halt()
	mc.TickDelay()

	mc.Inspect(func(st *machine.MachineState) {
		assert.Equal(t, byte(3), st.DelayTimer)
	})
}

func TestObservers(t *testing.T) {
	t.Run("Order", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x6001, 0x6102})

		var calls []string
		first := &recorder{name: "first", log: &calls}
		second := &recorder{name: "second", log: &calls}

		mc.AddObservers(first, second)

		require.NoError(t, mc.Step())
		require.NoError(t, mc.Step())

		assert.Equal(t, []string{"first", "second", "first", "second"}, calls)
	})

	t.Run("ContextAfterEffects", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x6A42, 0xA123, 0x2208})

		rec := &recorder{}
		mc.AddObservers(rec)

		for i := 0; i < 3; i++ {
			require.NoError(t, mc.Step())
		}

		require.Len(t, rec.contexts, 3)

		assert.Equal(t, byte(0x42), rec.contexts[0].V[0xA])
		assert.Equal(t, uint16(0x202), rec.contexts[0].PC)
		assert.Equal(t, uint16(0x6A42), rec.contexts[0].Opcode)
		assert.Equal(t, machine.INSTRUCTION_SET, rec.contexts[0].Instruction)
		assert.Equal(t, uint64(1), rec.contexts[0].Cycle)

		assert.Equal(t, uint16(0x123), rec.contexts[1].I)

		assert.Equal(t, uint16(0x208), rec.contexts[2].PC)
		assert.Equal(t, 1, rec.contexts[2].StackDepth)
		assert.Equal(t, byte(0x22), rec.contexts[2].Memory[0x204])
	})

	t.Run("HaltRequest", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x1200})

		rec := &recorder{haltAt: 3}
		mc.AddObservers(rec)

		for i := 0; i < 3; i++ {
			require.NoError(t, mc.Step())
		}

		assert.Equal(t, machine.STATUS_HALTED, mc.Status())
		assert.NoError(t, mc.Err())
		assert.ErrorIs(t, mc.Step(), machine.ErrHalted)
		assert.Equal(t, 3, rec.count())
	})

	t.Run("AllObserversNotified", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x1200})

		halting := &recorder{haltAt: 1}
		other := &recorder{}
		mc.AddObservers(halting, other)

		require.NoError(t, mc.Step())

		assert.Equal(t, 1, other.count())
		assert.Equal(t, machine.STATUS_HALTED, mc.Status())
	})
}

func newClockedMachine(t *testing.T, program []uint16) *machine.Machine {
	t.Helper()

	cfg := machine.DefaultConfig()
	cfg.ClockRate = 2000
	cfg.Display = host.NewFramebuffer()

	mc, err := machine.New(programBytes(program), cfg)
	require.NoError(t, err)

	return mc
}

func TestRun(t *testing.T) {
	t.Run("ObserverHalt", func(t *testing.T) {
		mc := newClockedMachine(t, []uint16{0x7001, 0x1200})

		rec := &recorder{haltAt: 50}
		mc.AddObservers(rec)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		require.NoError(t, mc.Run(ctx))

		assert.Equal(t, machine.STATUS_HALTED, mc.Status())
		assert.Equal(t, 50, rec.count())
		assert.Equal(t, uint64(50), mc.Cycle())
		assert.ErrorIs(t, mc.Start(ctx), machine.ErrNotReady)
	})

	t.Run("Fatal", func(t *testing.T) {
		mc := newClockedMachine(t, []uint16{0x00EE})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var stackErr *machine.StackError
		require.ErrorAs(t, mc.Run(ctx), &stackErr)
		assert.Equal(t, machine.STATUS_HALTED, mc.Status())
		assert.Equal(t, uint16(0x200), stackErr.PC)
	})

	t.Run("ClockDisabled", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x1200})

		assert.ErrorIs(t, mc.Run(context.Background()), machine.ErrNoClock)
		assert.Equal(t, machine.STATUS_READY, mc.Status())

		// Still usable by hand
		require.NoError(t, mc.Step())
		assert.Equal(t, uint64(1), mc.Cycle())
	})

	t.Run("Cancel", func(t *testing.T) {
		mc, _, _ := newTestMachine(t, []uint16{0x1200})

		ctx, cancel := context.WithCancel(context.Background())

		require.NoError(t, mc.Start(ctx))
		cancel()

		assert.NoError(t, mc.Wait())
		assert.Equal(t, machine.STATUS_HALTED, mc.Status())
	})

	t.Run("TimersIndependentOfExecution", func(t *testing.T) {
		cfg := machine.Config{
			ClockRate: 0,
			DelayRate: 1000,
			SoundRate: 1000,
			Display:   host.NewFramebuffer(),
		}

		mc, err := machine.New(programBytes([]uint16{0x1200}), cfg)
		require.NoError(t, err)

		mc.Inspect(func(st *machine.MachineState) {
			st.DelayTimer = 20
			st.SoundTimer = 20
		})

		require.NoError(t, mc.Start(context.Background()))
		assert.True(t, mc.SoundActive())

		assert.Eventually(t, func() bool {
			var zero bool
			mc.Inspect(func(st *machine.MachineState) {
				zero = st.DelayTimer == 0 && st.SoundTimer == 0
			})
			return zero
		}, 5*time.Second, 5*time.Millisecond)

		assert.False(t, mc.SoundActive())
		assert.Zero(t, mc.Cycle())

		mc.Halt()
		assert.NoError(t, mc.Wait())
	})
}
