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

package assembler

import (
	"github.com/lassandro/gochip8/pkg/machine"
)

const (
	TOKEN_NONE TokenType = iota
	TOKEN_IDENT
	TOKEN_DIRECTIVE
	TOKEN_LITERAL
)

const (
	LITERAL_NIBBLE LiteralType = 4
	LITERAL_BYTE               = 8
	LITERAL_ADDR               = 12
	LITERAL_WORD               = 16
)

const (
	DIRECTIVE_INVALID DirectiveType = iota
	DIRECTIVE_ORIG
	DIRECTIVE_BYTE
	DIRECTIVE_WORD
	DIRECTIVE_BLKB
	DIRECTIVE_END
)

const (
	OPERANDS_NONE     OperandLayout = iota
	OPERANDS_ADDR                   // nnn
	OPERANDS_X                      // Vx
	OPERANDS_X_BYTE                 // Vx, kk
	OPERANDS_X_Y                    // Vx, Vy
	OPERANDS_X_OPT_Y                // Vx[, Vy]
	OPERANDS_X_Y_NIBBLE             // Vx, Vy, n
)

type opcodeEncoding struct {
	Base   uint16
	Layout OperandLayout
}

var encodings = [machine.INSTRUCTION_COUNT]opcodeEncoding{
	machine.INSTRUCTION_CLS:  {0x00E0, OPERANDS_NONE},
	machine.INSTRUCTION_RET:  {0x00EE, OPERANDS_NONE},
	machine.INSTRUCTION_JMP:  {0x1000, OPERANDS_ADDR},
	machine.INSTRUCTION_CALL: {0x2000, OPERANDS_ADDR},
	machine.INSTRUCTION_SE:   {0x3000, OPERANDS_X_BYTE},
	machine.INSTRUCTION_SNE:  {0x4000, OPERANDS_X_BYTE},
	machine.INSTRUCTION_SER:  {0x5000, OPERANDS_X_Y},
	machine.INSTRUCTION_SET:  {0x6000, OPERANDS_X_BYTE},
	machine.INSTRUCTION_ADD:  {0x7000, OPERANDS_X_BYTE},
	machine.INSTRUCTION_SETR: {0x8000, OPERANDS_X_Y},
	machine.INSTRUCTION_OR:   {0x8001, OPERANDS_X_Y},
	machine.INSTRUCTION_AND:  {0x8002, OPERANDS_X_Y},
	machine.INSTRUCTION_XOR:  {0x8003, OPERANDS_X_Y},
	machine.INSTRUCTION_ADDR: {0x8004, OPERANDS_X_Y},
	machine.INSTRUCTION_SUB:  {0x8005, OPERANDS_X_Y},
	machine.INSTRUCTION_SHR:  {0x8006, OPERANDS_X_OPT_Y},
	machine.INSTRUCTION_SUBR: {0x8007, OPERANDS_X_Y},
	machine.INSTRUCTION_SHL:  {0x800E, OPERANDS_X_OPT_Y},
	machine.INSTRUCTION_SNER: {0x9000, OPERANDS_X_Y},
	machine.INSTRUCTION_LDA:  {0xA000, OPERANDS_ADDR},
	machine.INSTRUCTION_JMPO: {0xB000, OPERANDS_ADDR},
	machine.INSTRUCTION_RAND: {0xC000, OPERANDS_X_BYTE},
	machine.INSTRUCTION_DRAW: {0xD000, OPERANDS_X_Y_NIBBLE},
	machine.INSTRUCTION_SKP:  {0xE09E, OPERANDS_X},
	machine.INSTRUCTION_SKNP: {0xE0A1, OPERANDS_X},
	machine.INSTRUCTION_LDDT: {0xF007, OPERANDS_X},
	machine.INSTRUCTION_LDKP: {0xF00A, OPERANDS_X},
	machine.INSTRUCTION_STDT: {0xF015, OPERANDS_X},
	machine.INSTRUCTION_STST: {0xF018, OPERANDS_X},
	machine.INSTRUCTION_ADDA: {0xF01E, OPERANDS_X},
	machine.INSTRUCTION_LDSA: {0xF029, OPERANDS_X},
	machine.INSTRUCTION_STDR: {0xF033, OPERANDS_X},
	machine.INSTRUCTION_STRD: {0xF055, OPERANDS_X},
	machine.INSTRUCTION_LDRD: {0xF065, OPERANDS_X},
}
