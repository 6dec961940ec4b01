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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/lassandro/gochip8/pkg/agent"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/host"
	"github.com/lassandro/gochip8/pkg/host/beeper"
	"github.com/lassandro/gochip8/pkg/host/window"
	"github.com/lassandro/gochip8/pkg/machine"
)

var helpvar bool
var debugvar bool
var windowvar bool
var mutevar bool
var tracevar bool
var verbosevar bool
var ratevar int
var timerratevar int
var stackvar int
var scalevar int
var cyclesvar uint64
var scriptvar string
var statsvar string

const usage = "gochip8 [flags] filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(
		&windowvar, "window", false,
		"Displays the machine in a window instead of the terminal",
	)
	flag.BoolVar(&mutevar, "mute", false, "Disables the beeper")
	flag.BoolVar(&tracevar, "trace", false, "Logs every executed cycle")
	flag.BoolVar(
		&verbosevar, "verbose", false, "Logs machine start and halt events",
	)
	flag.IntVar(
		&ratevar, "rate", machine.DEFAULT_CLOCK_RATE,
		"Instructions executed per second",
	)
	flag.IntVar(
		&timerratevar, "timer-rate", machine.DEFAULT_TIMER_RATE,
		"Delay and sound timer decrements per second",
	)
	flag.IntVar(
		&stackvar, "stack", machine.DEFAULT_STACK_LIMIT,
		"Maximum call depth, 0 for unbounded",
	)
	flag.IntVar(&scalevar, "scale", 10, "Window pixels per display pixel")
	flag.Uint64Var(
		&cyclesvar, "cycles", 0, "Halts after this many cycles, 0 for never",
	)
	flag.StringVar(
		&scriptvar, "script", "",
		"Lua script defining an on_cycle(ctx) function run after each cycle",
	)
	flag.StringVar(
		&statsvar, "statsview", "",
		"Serves runtime statistics on this address, i.e. localhost:12600",
	)
}

func gochip8() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	fb := host.NewFramebuffer()
	kp := host.NewKeypad()

	cfg := machine.DefaultConfig()
	cfg.ClockRate = ratevar
	cfg.DelayRate = timerratevar
	cfg.SoundRate = timerratevar
	cfg.StackLimit = stackvar
	cfg.Display = fb
	cfg.Controls = kp

	if verbosevar {
		cfg.Logger = log.Default()
	}

	mc, err := machine.Open(args[0], cfg)

	if err != nil {
		log.Println(err)
		return 1
	}

	if cyclesvar > 0 {
		mc.AddObservers(&agent.Limit{Cycles: cyclesvar})
	}

	if tracevar {
		mc.AddObservers(&agent.Trace{Logger: log.Default()})
	}

	var script *agent.Script

	if scriptvar != "" {
		if script, err = agent.OpenScript(scriptvar, log.Default()); err != nil {
			log.Println(err)
			return 1
		}

		defer script.Close()
		mc.AddObservers(script)
	}

	var dbg *debugger.Debugger

	if debugvar {
		dbg = newDebugger(args[0], mc)

		if closer, ok := dbg.Source.(io.Closer); ok {
			defer closer.Close()
		}

		mc.AddObservers(dbg)
	}

	if statsvar != "" {
		launchStats(statsvar, os.Stderr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := func() {
		if dbg != nil {
			dbg.Break.Store(true)
		} else {
			cancel()
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)

	go func() {
		for {
			select {
			case <-signals:
				interrupt()
			case <-ctx.Done():
				return
			}
		}
	}()

	if dbg != nil {
		if !debugREPL(dbg, mc) {
			return 0
		}
	}

	if !mutevar {
		if bp, err := beeper.New(mc.SoundActive); err == nil {
			bp.Start()
			defer bp.Close()
		} else {
			log.Println("Error opening audio device")
			log.Println(err)
		}
	}

	if windowvar {
		err = runWindow(ctx, mc, fb, kp)
	} else {
		err = runTerminal(ctx, mc, fb, kp, interrupt)
	}

	if err != nil {
		log.Println(err)
		return 1
	}

	if script != nil && script.Err() != nil {
		log.Println(script.Err())
		return 1
	}

	return 0
}

func runWindow(
	ctx context.Context,
	mc *machine.Machine,
	fb *host.Framebuffer,
	kp *host.Keypad,
) error {
	if err := mc.Start(ctx); err != nil {
		return err
	}

	w := window.New(mc, fb, kp, scalevar)
	w.Title = filepath.Base(flag.Arg(0))

	if err := w.Run(); err != nil {
		mc.Halt()
		mc.Wait()
		return err
	}

	mc.Halt()
	return mc.Wait()
}

func runTerminal(
	ctx context.Context,
	mc *machine.Machine,
	fb *host.Framebuffer,
	kp *host.Keypad,
	interrupt func(),
) error {
	if err := enterRawTerm(); err != nil {
		return err
	}

	defer exitRawTerm()

	checkTermSize()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scr := newScreen(fb, os.Stdout)
	activeScreen = scr

	go readKeys(ctx, kp, interrupt)
	go scr.Run(ctx)

	err := mc.Run(ctx)

	cancel()
	scr.Draw()

	return err
}

func main() {
	flag.Parse()
	os.Exit(gochip8())
}
