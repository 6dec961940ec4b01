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

func (ins Instruction) String() string {
	if ins >= INSTRUCTION_COUNT {
		return instructionNames[INSTRUCTION_UNSUPPORTED]
	}

	return instructionNames[ins]
}

// Decode maps an opcode to its instruction kind. Encodings outside the
// instruction table decode to INSTRUCTION_UNSUPPORTED.
func Decode(opcode uint16) Instruction {
	switch opcode >> 12 {
	case 0x0:
		switch opcode {
		case 0x00E0:
			return INSTRUCTION_CLS
		case 0x00EE:
			return INSTRUCTION_RET
		}

	case 0x1:
		return INSTRUCTION_JMP
	case 0x2:
		return INSTRUCTION_CALL
	case 0x3:
		return INSTRUCTION_SE
	case 0x4:
		return INSTRUCTION_SNE

	case 0x5:
		if opcode&0xF == 0 {
			return INSTRUCTION_SER
		}

	case 0x6:
		return INSTRUCTION_SET
	case 0x7:
		return INSTRUCTION_ADD

	case 0x8:
		switch opcode & 0xF {
		case 0x0:
			return INSTRUCTION_SETR
		case 0x1:
			return INSTRUCTION_OR
		case 0x2:
			return INSTRUCTION_AND
		case 0x3:
			return INSTRUCTION_XOR
		case 0x4:
			return INSTRUCTION_ADDR
		case 0x5:
			return INSTRUCTION_SUB
		case 0x6:
			return INSTRUCTION_SHR
		case 0x7:
			return INSTRUCTION_SUBR
		case 0xE:
			return INSTRUCTION_SHL
		}

	case 0x9:
		if opcode&0xF == 0 {
			return INSTRUCTION_SNER
		}

	case 0xA:
		return INSTRUCTION_LDA
	case 0xB:
		return INSTRUCTION_JMPO
	case 0xC:
		return INSTRUCTION_RAND
	case 0xD:
		return INSTRUCTION_DRAW

	case 0xE:
		switch opcode & 0xFF {
		case 0x9E:
			return INSTRUCTION_SKP
		case 0xA1:
			return INSTRUCTION_SKNP
		}

	case 0xF:
		switch opcode & 0xFF {
		case 0x07:
			return INSTRUCTION_LDDT
		case 0x0A:
			return INSTRUCTION_LDKP
		case 0x15:
			return INSTRUCTION_STDT
		case 0x18:
			return INSTRUCTION_STST
		case 0x1E:
			return INSTRUCTION_ADDA
		case 0x29:
			return INSTRUCTION_LDSA
		case 0x33:
			return INSTRUCTION_STDR
		case 0x55:
			return INSTRUCTION_STRD
		case 0x65:
			return INSTRUCTION_LDRD
		}
	}

	return INSTRUCTION_UNSUPPORTED
}

// Operand fields shared by the instruction encodings

func Address(opcode uint16) uint16 {
	return opcode & 0x0FFF
}

func RegisterX(opcode uint16) uint8 {
	return uint8((opcode >> 8) & 0xF)
}

func RegisterY(opcode uint16) uint8 {
	return uint8((opcode >> 4) & 0xF)
}

func Value(opcode uint16) byte {
	return byte(opcode & 0xFF)
}

func Nibble(opcode uint16) uint8 {
	return uint8(opcode & 0xF)
}
