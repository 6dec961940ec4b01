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

// Package disasm renders opcodes in the syntax accepted by the assembler.
package disasm

import (
	"fmt"

	"github.com/lassandro/gochip8/pkg/machine"
)

type Line struct {
	Addr   uint16
	Opcode uint16
	Text   string
}

// Disassemble renders a single opcode. Encodings the machine does not
// support are rendered as a .WORD directive.
func Disassemble(opcode uint16) string {
	instruction := machine.Decode(opcode)

	x := machine.RegisterX(opcode)
	y := machine.RegisterY(opcode)

	switch instruction {
	case machine.INSTRUCTION_CLS, machine.INSTRUCTION_RET:
		return instruction.String()

	case machine.INSTRUCTION_JMP,
		machine.INSTRUCTION_CALL,
		machine.INSTRUCTION_LDA,
		machine.INSTRUCTION_JMPO:
		return fmt.Sprintf("%s 0x%03X", instruction, machine.Address(opcode))

	case machine.INSTRUCTION_SE,
		machine.INSTRUCTION_SNE,
		machine.INSTRUCTION_SET,
		machine.INSTRUCTION_ADD,
		machine.INSTRUCTION_RAND:
		return fmt.Sprintf(
			"%s V%X, 0x%02X", instruction, x, machine.Value(opcode),
		)

	case machine.INSTRUCTION_SER,
		machine.INSTRUCTION_SNER,
		machine.INSTRUCTION_SETR,
		machine.INSTRUCTION_OR,
		machine.INSTRUCTION_AND,
		machine.INSTRUCTION_XOR,
		machine.INSTRUCTION_ADDR,
		machine.INSTRUCTION_SUB,
		machine.INSTRUCTION_SUBR,
		machine.INSTRUCTION_SHR,
		machine.INSTRUCTION_SHL:
		return fmt.Sprintf("%s V%X, V%X", instruction, x, y)

	case machine.INSTRUCTION_DRAW:
		return fmt.Sprintf(
			"%s V%X, V%X, 0x%X", instruction, x, y, machine.Nibble(opcode),
		)

	case machine.INSTRUCTION_UNSUPPORTED:
		return fmt.Sprintf(".WORD 0x%04X", opcode)
	}

	// Remaining instructions take Vx alone
	return fmt.Sprintf("%s V%X", instruction, x)
}

// Program disassembles an image loaded at origin. A trailing odd byte is
// rendered as a .BYTE directive.
func Program(image []byte, origin uint16) []Line {
	lines := make([]Line, 0, (len(image)+1)/2)

	for i := 0; i < len(image); i += 2 {
		addr := origin + uint16(i)

		if i+1 >= len(image) {
			lines = append(lines, Line{
				Addr:   addr,
				Opcode: uint16(image[i]),
				Text:   fmt.Sprintf(".BYTE 0x%02X", image[i]),
			})

			break
		}

		opcode := uint16(image[i])<<8 | uint16(image[i+1])

		lines = append(lines, Line{
			Addr:   addr,
			Opcode: opcode,
			Text:   Disassemble(opcode),
		})
	}

	return lines
}

// Source renders lines as a listing the assembler accepts, starting with an
// origin directive.
func Source(lines []Line) string {
	if len(lines) == 0 {
		return ""
	}

	source := fmt.Sprintf(".ORIG 0x%03X\n", lines[0].Addr)

	for _, line := range lines {
		source += fmt.Sprintf("\t%-20s ; %#04x\n", line.Text, line.Addr)
	}

	return source
}
