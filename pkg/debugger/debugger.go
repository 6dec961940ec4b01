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

package debugger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bradleyjkemp/memviz"

	"github.com/lassandro/gochip8/pkg/disasm"
	"github.com/lassandro/gochip8/pkg/machine"
)

func (dbg *Debugger) out() io.Writer {
	if dbg.Output == nil {
		return os.Stdout
	}

	return dbg.Output
}

// Quit asks the machine to halt after the current cycle.
func (dbg *Debugger) Quit() {
	dbg.quit.Store(true)
}

func (dbg *Debugger) ShouldHalt() bool {
	return dbg.quit.Load()
}

// OnCycle reports accesses to watched memory, then stops if the next
// instruction is a breakpoint or the debugger is single stepping.
func (dbg *Debugger) OnCycle(ctx *machine.Context) {
	if dbg.quit.Load() {
		return
	}

	reads, writes := Accesses(ctx)

	for _, addr := range reads {
		dbg.Read(addr, ctx)
	}

	for _, addr := range writes {
		dbg.Write(addr, ctx)
	}

	dbg.Step(ctx)
}

func (dbg *Debugger) Step(ctx *machine.Context) {
	if dbg.quit.Load() {
		return
	}

	if dbg.Break.Load() {
		if dbg.HandleBreak != nil {
			dbg.HandleBreak(dbg, ctx)
		}

		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if ctx.PC == breakpoint.Addr {
			if dbg.HandleBreak != nil {
				dbg.HandleBreak(dbg, ctx)
			}

			break
		}
	}
}

func (dbg *Debugger) Read(addr uint16, ctx *machine.Context) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			if dbg.HandleRead != nil {
				dbg.HandleRead(addr, dbg, ctx)
			}

			break
		}
	}
}

func (dbg *Debugger) Write(addr uint16, ctx *machine.Context) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			if dbg.HandleWrite != nil {
				dbg.HandleWrite(addr, dbg, ctx)
			}

			break
		}
	}
}

// Accesses lists the data memory the cycle's instruction read and wrote.
// Instruction fetches are not included.
func Accesses(ctx *machine.Context) (reads, writes []uint16) {
	span := func(count int) []uint16 {
		addrs := make([]uint16, 0, count)

		for i := 0; i < count; i++ {
			if addr := int(ctx.I) + i; addr < machine.MEMORY_SIZE {
				addrs = append(addrs, uint16(addr))
			}
		}

		return addrs
	}

	x := int(machine.RegisterX(ctx.Opcode))

	switch ctx.Instruction {
	case machine.INSTRUCTION_DRAW:
		reads = span(int(machine.Nibble(ctx.Opcode)))
	case machine.INSTRUCTION_LDRD:
		reads = span(x + 1)
	case machine.INSTRUCTION_STRD:
		writes = span(x + 1)
	case machine.INSTRUCTION_STDR:
		writes = span(3)
	}

	return
}

func (dbg *Debugger) PrintSource(mem *machine.Memory, addr uint16, count uint16) {
	out := dbg.out()

	if dbg.Source == nil || dbg.SymTable == nil {
		dbg.printDisassembly(mem, addr, count)
		return
	}

	offset, exists := dbg.SymTable.Symbols[addr]

	if !exists {
		fmt.Fprintf(out, "No instruction found at %#04x\n", addr)
		return
	}

	lineAddrs := make(map[int64]uint16, len(dbg.SymTable.Symbols))
	for lineaddr, linebyte := range dbg.SymTable.Symbols {
		lineAddrs[linebyte] = lineaddr
	}

	if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
		fmt.Fprintln(out, err)
		return
	}

	scanner := bufio.NewScanner(dbg.Source)
	scanner.Split(bufio.ScanLines)

	for i := uint16(0); i < count; i++ {
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if lineaddr, found := lineAddrs[offset]; found {
			fmt.Fprintf(out, "\033[1m[%#04x]\033[0m ", lineaddr)
		} else {
			fmt.Fprint(out, "\033[1;30m~~~~~~~\033[0m ")
		}

		fmt.Fprintln(out, line)

		offset += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(out, err)
	}
}

func (dbg *Debugger) printDisassembly(mem *machine.Memory, addr uint16, count uint16) {
	out := dbg.out()

	start := int(addr)
	end := min(start+int(count)*2, machine.MEMORY_SIZE)

	if start >= end {
		fmt.Fprintf(out, "No instruction found at %#04x\n", addr)
		return
	}

	for _, line := range disasm.Program(mem[start:end], addr) {
		if label, ok := dbg.SymTable.Label(line.Addr); ok {
			fmt.Fprintf(out, "\033[1;30m%s\033[0m\n", label)
		}

		fmt.Fprintf(
			out,
			"\033[1m[%#04x]\033[0m \033[1;30m%04x\033[0m %s\n",
			line.Addr,
			line.Opcode,
			line.Text,
		)
	}
}

func (dbg *Debugger) PrintMem(mem *machine.Memory, addr, count uint16) {
	out := dbg.out()

	for i := int(addr); i < int(addr)+int(count); i++ {
		if i >= machine.MEMORY_SIZE {
			break
		}

		if i == int(addr) {
			fmt.Fprintf(out, "\033[1m[%#04x]\033[0m ", i)
		} else if (i-int(addr))%8 == 0 {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "\033[1m[%#04x]\033[0m ", i)
		}

		result := mem[i]

		if result == 0 {
			fmt.Fprintf(out, "\033[1;30m%#02x\033[0m ", result)
		} else {
			fmt.Fprintf(out, "%#02x ", result)
		}
	}

	fmt.Fprintln(out)
}

func (dbg *Debugger) PrintRegs(reg *machine.Registers, stack []uint16) {
	out := dbg.out()

	for i, value := range reg.V {
		fmt.Fprintf(out, "\033[1mV%X:\033[0m %#02x\t", i, value)

		if i%8 == 7 {
			fmt.Fprintln(out)
		}
	}

	fmt.Fprintf(
		out,
		"\033[1mPC:\033[0m %#04x\t\033[1mI:\033[0m %#04x\t"+
			"\033[1mDT:\033[0m %d\t\033[1mST:\033[0m %d\n",
		reg.PC,
		reg.I,
		reg.DelayTimer,
		reg.SoundTimer,
	)

	fmt.Fprint(out, "\033[1mStack:\033[0m")

	for _, addr := range stack {
		fmt.Fprintf(out, " %#04x", addr)
	}

	fmt.Fprintln(out)
}

func (dbg *Debugger) PrintLabels() {
	out := dbg.out()

	if dbg.SymTable == nil {
		fmt.Fprintln(out, "No symbol table loaded")
		return
	}

	keys := make([]uint16, 0, len(dbg.SymTable.Labels))
	for addr := range dbg.SymTable.Labels {
		keys = append(keys, addr)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, addr := range keys {
		fmt.Fprintf(
			out, "\033[1m[%#04x]\033[0m %s\n", addr, dbg.SymTable.Labels[addr],
		)
	}
}

// LookupLabel finds the address of a label in the symbol table.
func (dbg *Debugger) LookupLabel(name string) (uint16, bool) {
	if dbg.SymTable == nil {
		return 0, false
	}

	for addr, label := range dbg.SymTable.Labels {
		if label == name {
			return addr, true
		}
	}

	return 0, false
}

// Dump writes a Graphviz rendering of the machine state.
func (dbg *Debugger) Dump(w io.Writer, state *machine.MachineState) {
	memviz.Map(w, state)
}
