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
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

var lastcmd []string
var activeScreen *screen

// Loads the symbol table written next to the program by gochip8-asm, and
// the source it points to
func newDebugger(program string, mc *machine.Machine) *debugger.Debugger {
	dbg := &debugger.Debugger{
		HandleBreak: func(dbg *debugger.Debugger, ctx *machine.Context) {
			handleBreak(dbg, mc, ctx)
		},
		HandleRead: func(addr uint16, dbg *debugger.Debugger, ctx *machine.Context) {
			handleAccess("read", addr, dbg, mc, ctx)
		},
		HandleWrite: func(addr uint16, dbg *debugger.Debugger, ctx *machine.Context) {
			handleAccess("write", addr, dbg, mc, ctx)
		},
	}

	filename := filepath.Join(
		filepath.Dir(program),
		strings.TrimSuffix(filepath.Base(program), filepath.Ext(program))+".c8db",
	)

	if file, err := os.Open(filename); err == nil {
		var symtable assembler.SymTable

		if err := gob.NewDecoder(file).Decode(&symtable); err == nil {
			dbg.SymTable = &symtable
		} else {
			log.Println("Error loading symbol file")
			log.Println(err)
		}

		file.Close()
	} else if !os.IsNotExist(err) {
		log.Println("Error loading symbol file")
		log.Println(err)
	}

	if dbg.SymTable != nil && dbg.SymTable.Source != "" {
		if file, err := os.Open(dbg.SymTable.Source); err == nil {
			dbg.Source = file
		} else {
			log.Println("Error loading source file")
			log.Println(err)
		}
	}

	return dbg
}

// Resolves a label, or a hex address
func parseAddr(dbg *debugger.Debugger, s string) (uint16, error) {
	if addr, ok := dbg.LookupLabel(s); ok {
		return addr, nil
	}

	addr, err := encoding.DecodeHex(s)

	if err != nil {
		return 0, err
	}

	if int(addr) >= machine.MEMORY_SIZE {
		return 0, fmt.Errorf("Address %#04x is out of range", addr)
	}

	return addr, nil
}

func parseCount(s string) (uint16, error) {
	value, err := strconv.ParseUint(s, 10, 16)

	if err != nil {
		return 0, err
	}

	return uint16(value), nil
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x###|label]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		addr, err := parseAddr(dbg, args[0])

		if err != nil {
			log.Println(err)
			return
		}

		for _, breakpoint := range dbg.Breakpoints {
			if breakpoint.Addr == addr {
				return
			}
		}

		dbg.Breakpoints = append(dbg.Breakpoints, debugger.Breakpoint{Addr: addr})
		fmt.Printf("Breakpoint added [%#04x]\n", addr)

	case "l", "ls", "list":
		const usage = "break list"

		if len(args) != 0 {
			log.Println(usage)
			return
		}

		var fmtstring string
		{
			digits := math.Floor(math.Log10(float64(len(dbg.Breakpoints) + 1)))
			fmtstring = fmt.Sprintf("#%%0%dd: %%#x\n", int64(digits)+1)
		}

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(fmtstring, i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.ParseInt(args[0], 10, 64)

		if err != nil {
			log.Println(err)
			return
		}

		if i < 0 || i >= int64(len(dbg.Breakpoints)) {
			log.Println("Invalid breakpoint number")
			return
		}

		dbg.Breakpoints = append(dbg.Breakpoints[:i], dbg.Breakpoints[i+1:]...)
		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		log.Printf("break: '%s' is not a valid command\n", cmd)
	}
}

func watchTypeName(wtype debugger.WatchpointType) string {
	switch wtype {
	case debugger.ReadWatch:
		return "read"
	case debugger.WriteWatch:
		return "write"
	default:
		return "readwrite"
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|rm|clear]"

	if len(args) == 0 {
		log.Println(usage)
		return
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x###|label] [read|write|readwrite]"

		if len(args) != 2 {
			log.Println(usage)
			return
		}

		addr, err := parseAddr(dbg, args[0])

		if err != nil {
			log.Println(err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			log.Println(usage)
			return
		}

		for _, watchpoint := range dbg.Watchpoints {
			if watchpoint.Addr == addr && watchpoint.Type == wtype {
				return
			}
		}

		dbg.Watchpoints = append(
			dbg.Watchpoints,
			debugger.Watchpoint{Addr: addr, Type: wtype},
		)

		fmt.Printf("Watchpoint added [%#04x] (%s)\n", addr, watchTypeName(wtype))

	case "l", "ls", "list":
		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(
				"#%d: %#x %s\n", i, watchpoint.Addr, watchTypeName(watchpoint.Type),
			)
		}

	case "r", "rm", "remove":
		const usage = "watch rm [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.ParseInt(args[0], 10, 64)

		if err != nil {
			log.Println(err)
			return
		}

		if i < 0 || i >= int64(len(dbg.Watchpoints)) {
			log.Println("Invalid watchpoint number")
			return
		}

		dbg.Watchpoints = append(dbg.Watchpoints[:i], dbg.Watchpoints[i+1:]...)
		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		log.Printf("watch: '%s' is not a valid command\n", cmd)
	}
}

func debugReg(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "register [V#|I|PC|DT|ST] [value]"

	if len(args) == 0 {
		mc.Inspect(func(state *machine.MachineState) {
			dbg.PrintRegs(&state.Registers, state.Stack.Entries())
		})

		return
	}

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err != nil {
		log.Println(err)
		return
	}

	name := strings.ToUpper(args[0])

	mc.Inspect(func(state *machine.MachineState) {
		switch {
		case name == "I":
			state.I = value & 0x0FFF
		case name == "PC":
			state.PC = value & 0x0FFF
		case name == "DT":
			state.DelayTimer = byte(value)
		case name == "ST":
			state.SoundTimer = byte(value)
		case len(name) == 2 && name[0] == 'V':
			index, err := strconv.ParseUint(name[1:], 16, 8)

			if err != nil {
				log.Println("Invalid register")
				return
			}

			state.V[index] = byte(value)
		default:
			log.Println("Invalid register")
			return
		}

		dbg.PrintRegs(&state.Registers, state.Stack.Entries())
	})
}

func debugSource(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "source [0x###|label] [#]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	var addr uint16
	var size uint16 = 8
	var err error

	mc.Inspect(func(state *machine.MachineState) {
		addr = state.PC
	})

	if len(args) > 0 {
		if target, parseErr := parseAddr(dbg, args[0]); parseErr == nil {
			addr = target
		} else if size, err = parseCount(args[0]); err != nil {
			log.Println(err)
			return
		}
	}

	if len(args) > 1 {
		if size, err = parseCount(args[1]); err != nil {
			log.Println(err)
			return
		}
	}

	mc.Inspect(func(state *machine.MachineState) {
		dbg.PrintSource(&state.Memory, addr, size)
	})
}

func debugJump(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "jump [0x###|label]"

	if len(args) != 1 {
		fmt.Println(usage)
		return
	}

	addr, err := parseAddr(dbg, args[0])

	if err != nil {
		log.Println(err)
		return
	}

	mc.Inspect(func(state *machine.MachineState) {
		state.PC = addr
	})

	if label, ok := dbg.SymTable.Label(addr); ok {
		fmt.Printf("\033[1mPC:\033[0m %#04x \033[1;30m(%s)\033[0m\n", addr, label)
	} else {
		fmt.Printf("\033[1mPC:\033[0m %#04x\n", addr)
	}
}

func debugMemory(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "memory [0x###|label|#] [#]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	var size uint16 = 1
	var addr uint16
	var err error

	mc.Inspect(func(state *machine.MachineState) {
		addr = state.I
	})

	if len(args) > 0 {
		if target, parseErr := parseAddr(dbg, args[0]); parseErr == nil {
			addr = target
		} else if size, err = parseCount(args[0]); err != nil {
			log.Println(err)
			return
		}
	}

	if len(args) > 1 {
		if size, err = parseCount(args[1]); err != nil {
			log.Println(err)
			return
		}
	}

	mc.Inspect(func(state *machine.MachineState) {
		dbg.PrintMem(&state.Memory, addr, size)
	})
}

func debugSet(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "set [0x###|label] [value]"

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	addr, err := parseAddr(dbg, args[0])

	if err != nil {
		log.Println(err)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err != nil {
		log.Println(err)
		return
	}

	if value > 0xFF {
		log.Printf("Value %#x does not fit in a byte\n", value)
		return
	}

	mc.Inspect(func(state *machine.MachineState) {
		if err := state.Memory.Write(int(addr), byte(value)); err != nil {
			log.Println(err)
			return
		}

		dbg.PrintMem(&state.Memory, addr, 1)
	})
}

func debugDump(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "dump [file.dot]"

	if len(args) > 1 {
		log.Println(usage)
		return
	}

	var out io.Writer = os.Stdout

	if len(args) == 1 {
		file, err := os.Create(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		defer file.Close()
		out = file
	}

	mc.Inspect(func(state *machine.MachineState) {
		dbg.Dump(out, state)
	})

	if len(args) == 1 {
		fmt.Printf("Machine state written to %s\n", args[0])
	}
}

// Reads debugger commands until one resumes execution. Returns false if the
// user asked to quit.
func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) bool {
	if activeScreen != nil {
		activeScreen.Pause()
		defer activeScreen.Resume()
	}

	if exitRawTerm() {
		defer enterRawTerm()
	}

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !scanner.Scan() {
			fmt.Println()
			return false
		}

		args := strings.Fields(scanner.Text())

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "register", "registers":
			debugReg(dbg, mc, args)

		case "s", "src", "source":
			debugSource(dbg, mc, args)

		case "l", "label", "labels":
			dbg.PrintLabels()

		case "j", "jmp", "jump":
			debugJump(dbg, mc, args)

		case "m", "mem", "memory":
			debugMemory(dbg, mc, args)

		case "set":
			debugSet(dbg, mc, args)

		case "d", "dump":
			debugDump(dbg, mc, args)

		case "c", "continue":
			dbg.Break.Store(false)
			return true

		case "n", "next":
			dbg.Break.Store(true)
			return true

		case "q", "quit", "exit":
			return false

		case "clear":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine, ctx *machine.Context) {
	if dbg.Break.Load() {
		dbg.PrintSource(&ctx.Memory, ctx.PC, 1)
	} else {
		fmt.Println()
		fmt.Println("Program stopped")
		dbg.PrintSource(&ctx.Memory, ctx.PC, 8)
	}

	if !debugREPL(dbg, mc) {
		dbg.Quit()
	}
}

func handleAccess(
	kind string,
	addr uint16,
	dbg *debugger.Debugger,
	mc *machine.Machine,
	ctx *machine.Context,
) {
	fmt.Println()
	fmt.Printf("Program stopped (%s)\n", kind)
	dbg.PrintMem(&ctx.Memory, addr, 1)

	if !debugREPL(dbg, mc) {
		dbg.Quit()
	}
}
