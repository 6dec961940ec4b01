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

const (
	MEMORY_SIZE = 4096

	MEMSPACE_FONT    uint16 = 0x0000
	MEMSPACE_PROGRAM uint16 = 0x0200

	// Untyped so it converts to both int and int64
	PROGRAM_SIZE_MAX = MEMORY_SIZE - 0x0200
)

const (
	DISPLAY_WIDTH  = 64
	DISPLAY_HEIGHT = 32
)

const (
	REGISTER_COUNT = 16
	REGISTER_FLAG  = 0xF

	KEY_COUNT = 16

	GLYPH_SIZE = 5
)

const (
	DEFAULT_CLOCK_RATE  = 500
	DEFAULT_TIMER_RATE  = 60
	DEFAULT_STACK_LIMIT = 16
)

const (
	STATUS_READY Status = iota
	STATUS_RUNNING
	STATUS_HALTED
)

const (
	INSTRUCTION_UNSUPPORTED Instruction = iota
	INSTRUCTION_CLS
	INSTRUCTION_RET
	INSTRUCTION_JMP
	INSTRUCTION_CALL
	INSTRUCTION_SE
	INSTRUCTION_SNE
	INSTRUCTION_SER
	INSTRUCTION_SET
	INSTRUCTION_ADD
	INSTRUCTION_SETR
	INSTRUCTION_OR
	INSTRUCTION_AND
	INSTRUCTION_XOR
	INSTRUCTION_ADDR
	INSTRUCTION_SUB
	INSTRUCTION_SHR
	INSTRUCTION_SUBR
	INSTRUCTION_SHL
	INSTRUCTION_SNER
	INSTRUCTION_LDA
	INSTRUCTION_JMPO
	INSTRUCTION_RAND
	INSTRUCTION_DRAW
	INSTRUCTION_SKP
	INSTRUCTION_SKNP
	INSTRUCTION_LDDT
	INSTRUCTION_LDKP
	INSTRUCTION_STDT
	INSTRUCTION_STST
	INSTRUCTION_ADDA
	INSTRUCTION_LDSA
	INSTRUCTION_STDR
	INSTRUCTION_STRD
	INSTRUCTION_LDRD

	INSTRUCTION_COUNT
)

var instructionNames = [INSTRUCTION_COUNT]string{
	INSTRUCTION_UNSUPPORTED: "???",
	INSTRUCTION_CLS:         "CLS",
	INSTRUCTION_RET:         "RET",
	INSTRUCTION_JMP:         "JMP",
	INSTRUCTION_CALL:        "CALL",
	INSTRUCTION_SE:          "SE",
	INSTRUCTION_SNE:         "SNE",
	INSTRUCTION_SER:         "SER",
	INSTRUCTION_SET:         "SET",
	INSTRUCTION_ADD:         "ADD",
	INSTRUCTION_SETR:        "SETR",
	INSTRUCTION_OR:          "OR",
	INSTRUCTION_AND:         "AND",
	INSTRUCTION_XOR:         "XOR",
	INSTRUCTION_ADDR:        "ADDR",
	INSTRUCTION_SUB:         "SUB",
	INSTRUCTION_SHR:         "SHR",
	INSTRUCTION_SUBR:        "SUBR",
	INSTRUCTION_SHL:         "SHL",
	INSTRUCTION_SNER:        "SNER",
	INSTRUCTION_LDA:         "LDA",
	INSTRUCTION_JMPO:        "JMPO",
	INSTRUCTION_RAND:        "RAND",
	INSTRUCTION_DRAW:        "DRAW",
	INSTRUCTION_SKP:         "SKP",
	INSTRUCTION_SKNP:        "SKNP",
	INSTRUCTION_LDDT:        "LDDT",
	INSTRUCTION_LDKP:        "LDKP",
	INSTRUCTION_STDT:        "STDT",
	INSTRUCTION_STST:        "STST",
	INSTRUCTION_ADDA:        "ADDA",
	INSTRUCTION_LDSA:        "LDSA",
	INSTRUCTION_STDR:        "STDR",
	INSTRUCTION_STRD:        "STRD",
	INSTRUCTION_LDRD:        "LDRD",
}

// Hex digit glyphs 0-F, five rows each, loaded at MEMSPACE_FONT
var FONT = [16 * GLYPH_SIZE]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}
