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

func (mem *Memory) Read(addr int) (byte, error) {
	if addr < 0 || addr >= MEMORY_SIZE {
		return 0, &AddressError{"read", addr}
	}

	return mem[addr], nil
}

func (mem *Memory) Write(addr int, value byte) error {
	if addr < 0 || addr >= MEMORY_SIZE {
		return &AddressError{"write", addr}
	}

	mem[addr] = value
	return nil
}

// Copies data into memory starting at addr. Nothing is written if any part
// of the range falls outside memory.
func (mem *Memory) Load(addr int, data []byte) error {
	if addr < 0 || addr+len(data) > MEMORY_SIZE {
		return &AddressError{"load", addr + len(data) - 1}
	}

	copy(mem[addr:], data)
	return nil
}

func (mem *Memory) Snapshot() Memory {
	return *mem
}

func (stack *Stack) Push(addr uint16) bool {
	if stack.Limit > 0 && len(stack.entries) >= stack.Limit {
		return false
	}

	stack.entries = append(stack.entries, addr)
	return true
}

func (stack *Stack) Pop() (uint16, bool) {
	if len(stack.entries) == 0 {
		return 0, false
	}

	addr := stack.entries[len(stack.entries)-1]
	stack.entries = stack.entries[:len(stack.entries)-1]
	return addr, true
}

func (stack *Stack) Len() int {
	return len(stack.entries)
}

// Saved return addresses, oldest first.
func (stack *Stack) Entries() []uint16 {
	entries := make([]uint16, len(stack.entries))
	copy(entries, stack.entries)
	return entries
}

func (stack *Stack) Reset() {
	stack.entries = stack.entries[:0]
}

func (mc *MachineState) Reset() {
	mc.Registers = Registers{}

	for i := range mc.Memory {
		mc.Memory[i] = 0x00
	}

	mc.Stack.Reset()

	copy(mc.Memory[MEMSPACE_FONT:], FONT[:])

	// Programs begin execution at the start of their image
	mc.PC = MEMSPACE_PROGRAM
}
