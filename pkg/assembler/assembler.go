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
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".ORIG") {
		return DIRECTIVE_ORIG
	} else if strings.EqualFold(ident, ".BYTE") {
		return DIRECTIVE_BYTE
	} else if strings.EqualFold(ident, ".WORD") {
		return DIRECTIVE_WORD
	} else if strings.EqualFold(ident, ".BLKB") {
		return DIRECTIVE_BLKB
	} else if strings.EqualFold(ident, ".END") {
		return DIRECTIVE_END
	}

	return DIRECTIVE_INVALID
}

// Mnemonics are the instruction names the machine reports
func parseInstruction(ident string) machine.Instruction {
	for ins := machine.INSTRUCTION_CLS; ins < machine.INSTRUCTION_COUNT; ins++ {
		if strings.EqualFold(ident, ins.String()) {
			return ins
		}
	}

	return machine.INSTRUCTION_UNSUPPORTED
}

func parseLiteral(token *Token, bits LiteralType) (uint16, error) {
	result, err := encoding.DecodeLiteral(token.Value)

	if errors.Is(err, encoding.ErrNegativeLiteral) {
		value, _ := encoding.DecodeInt(token.Value)
		return 0, &OversizedLiteralError{token.Position, 0, value}
	} else if err != nil {
		return 0, &InvalidLiteralError{token.Position}
	}

	if bits < LITERAL_WORD {
		limit := uint16(1)<<bits - 1

		if result > limit {
			return 0, &OversizedLiteralError{token.Position, limit, result}
		}
	}

	return result, nil
}

// Registers are written V0-VF, case insensitive
func parseRegister(token *Token) (uint16, bool) {
	ident := token.Value

	if len(ident) != 2 || (ident[0] != 'V' && ident[0] != 'v') {
		return 0, false
	}

	reg, err := strconv.ParseUint(ident[1:], 16, 8)

	if err != nil {
		return 0, false
	}

	return uint16(reg), true
}

func operandRegister(token *Token) (uint16, error) {
	if token.Type != TOKEN_IDENT {
		return 0, &InvalidOperandError{
			token.Position,
			[]TokenType{TOKEN_IDENT},
			token.Type,
		}
	}

	reg, ok := parseRegister(token)

	if !ok {
		return 0, &InvalidRegisterError{token.Position}
	}

	return reg, nil
}

func operandLiteral(token *Token, bits LiteralType) (uint16, error) {
	if token.Type != TOKEN_LITERAL {
		return 0, &InvalidOperandError{
			token.Position,
			[]TokenType{TOKEN_LITERAL},
			token.Type,
		}
	}

	return parseLiteral(token, bits)
}

// Splits a line into tokens. Commas separate operands and a semicolon starts
// a comment running to the end of the line.
func tokenize(line string, cursor Cursor) (tokens []Token, errs []error) {
	var builder strings.Builder
	var tokenStart int = 0
	var tokenType TokenType = TOKEN_NONE
	var separator *Cursor = nil

	flush := func() {
		if builder.Len() > 0 {
			tokens = append(tokens, Token{
				Type: tokenType,
				Position: Cursor{
					Line:     cursor.Line,
					Column:   tokenStart,
					Byte:     cursor.Byte + int64(tokenStart-1),
					Size:     int64(builder.Len()),
					LineByte: cursor.Byte,
				},
				Value: builder.String(),
			})

			builder.Reset()
			separator = nil
		}

		tokenType = TOKEN_NONE
	}

scan:
	for column, char := range line {
		cursor.Column = column + 1

		if tokenType == TOKEN_NONE {
			tokenStart = cursor.Column
		}

		switch {
		// Whitespace
		case unicode.IsSpace(char):
			flush()
			continue

		// Comments
		case char == ';':
			flush()
			break scan

		// Operand Separator
		case char == ',':
			flush()

			if separator != nil || len(tokens) == 0 {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

			position := cursor
			separator = &position
			continue

		// Assembler Directives
		case char == '.':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_DIRECTIVE
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Base 10 Literal (i.e. #42)
		case char == '#':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Numeric Literal
		case char >= '0' && char <= '9':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			}

		// Numeric Sign
		case char == '-':
			if tokenType != TOKEN_LITERAL {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Underscore'd Identifier
		case char == '_':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_IDENT
			} else if tokenType != TOKEN_IDENT {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Hex Literal (i.e. x2A, no leading zero) or Identifier
		case char <= unicode.MaxASCII && unicode.IsLetter(char):
			if tokenType == TOKEN_NONE {
				if char == 'x' || char == 'X' {
					tokenType = TOKEN_LITERAL
				} else {
					tokenType = TOKEN_IDENT
				}
			}

		default:
			if char > unicode.MaxASCII {
				errs = append(errs, &OversizedCharacterError{cursor})
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}
		}

		builder.WriteRune(char)
	}

	flush()

	if separator != nil {
		errs = append(errs, &UnexpectedCharacterError{*separator, ','})
	}

	// Identifiers such as "xpos" start out looking like hex literals
	for i := range tokens {
		value := tokens[i].Value

		if tokens[i].Type == TOKEN_LITERAL &&
			(value[0] == 'x' || value[0] == 'X') {
			if _, err := encoding.DecodeHex(value); err != nil {
				tokens[i].Type = TOKEN_IDENT
			}
		}
	}

	return
}

// Encodes a single instruction. A label operand is returned unresolved in
// ref; its address is patched into the low 12 bits once every label is known.
func assembleInstruction(
	instruction machine.Instruction,
	keyword *Token,
	operands []Token,
) (scratch uint16, ref *Token, errs []error) {
	layout := encodings[instruction].Layout
	scratch = encodings[instruction].Base

	var required int

	switch layout {
	case OPERANDS_NONE:
		required = 0
	case OPERANDS_ADDR, OPERANDS_X:
		required = 1
	case OPERANDS_X_BYTE, OPERANDS_X_Y:
		required = 2
	case OPERANDS_X_OPT_Y:
		required = 2

		if len(operands) == 1 {
			required = 1
		}
	case OPERANDS_X_Y_NIBBLE:
		required = 3
	}

	if count := len(operands); count != required {
		errs = append(
			errs, &InvalidNumArgumentsError{keyword.Position, required, count},
		)

		return
	}

	// JMP  |0001   |addr12                 | Jump
	// CALL |0010   |addr12                 | Call subroutine
	// LDA  |1010   |addr12                 | I = addr
	// JMPO |1011   |addr12                 | PC = V0 + addr
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	if layout == OPERANDS_ADDR {
		switch operands[0].Type {
		case TOKEN_LITERAL:
			literal, err := parseLiteral(&operands[0], LITERAL_ADDR)

			if err != nil {
				errs = append(errs, err)
			}

			scratch |= (literal & 0x0FFF)
		case TOKEN_IDENT:
			ref = &operands[0]
		default:
			errs = append(
				errs,
				&InvalidOperandError{
					operands[0].Position,
					[]TokenType{TOKEN_LITERAL, TOKEN_IDENT},
					operands[0].Type,
				},
			)
		}

		return
	}

	// Every remaining layout leads with Vx, most follow it with Vy
	// ---- [ _ _ _ _ |X      |Y      |_ _ _ _ ]
	registers := len(operands)

	switch layout {
	case OPERANDS_X_BYTE:
		registers = 1
	case OPERANDS_X_Y_NIBBLE:
		registers = 2
	}

	for i := 0; i < registers; i++ {
		reg, err := operandRegister(&operands[i])

		if err != nil {
			errs = append(errs, err)
			continue
		}

		scratch |= (reg & 0xF) << (8 - 4*i)
	}

	switch layout {
	// SE   |0011   |X      |imm8           | Skip if Vx == imm
	// SET  |0110   |X      |imm8           | Vx = imm
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OPERANDS_X_BYTE:
		literal, err := operandLiteral(&operands[1], LITERAL_BYTE)

		if err != nil {
			errs = append(errs, err)
		}

		scratch |= (literal & 0xFF)

	// DRAW |1101   |X      |Y      |N      | XOR sprite at (Vx, Vy)
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OPERANDS_X_Y_NIBBLE:
		literal, err := operandLiteral(&operands[2], LITERAL_NIBBLE)

		if err != nil {
			errs = append(errs, err)
		}

		scratch |= (literal & 0xF)
	}

	return
}

// AssembleChip8Source assembles a program image to be loaded at
// machine.MEMSPACE_PROGRAM. When symtable is non-nil it receives the source
// offset of every instruction and the address of every label.
func AssembleChip8Source(input io.Reader, symtable *SymTable) (result []byte, errs []error) {
	type LabelRef struct {
		Label    string
		Addr     uint16
		Size     LiteralType
		Position Cursor
	}

	var labels = make(map[string]uint16)
	var labelOrder []string
	var labelRefs []LabelRef

	var program = uint32(machine.MEMSPACE_PROGRAM)
	var end = program
	var overflow = false

	var memory = make([]byte, machine.MEMORY_SIZE)
	var scanner = bufio.NewScanner(input)

	var cursor = Cursor{Line: 1, Column: 0, Size: 0, Byte: 0}

	errs = make([]error, 0)

	emit := func(data ...byte) bool {
		if program+uint32(len(data)) > machine.MEMORY_SIZE {
			errs = append(errs, &OversizedBinaryError{})
			overflow = true
			return false
		}

		copy(memory[program:], data)
		program += uint32(len(data))

		if program > end {
			end = program
		}

		return true
	}

	// Process:
	// - Parse line
	// - Assemble line
lines:
	for ; scanner.Scan(); cursor.Line++ {
		line := scanner.Text()

		lineCursor := cursor
		lineCursor.Size = int64(len(line))
		lineCursor.LineByte = cursor.Byte

		cursor.Byte += int64(len(line) + 1)

		tokens, lineErrs := tokenize(line, lineCursor)

		// Pass any potential assembler errors if we already had parser errors
		if len(lineErrs) > 0 {
			errs = append(errs, lineErrs...)
			continue
		}

		if len(tokens) == 0 {
			continue
		}

		// Assemble line
		// - Write instruction bytes to memory
		// - Save label refs for unknown labels
		// - Type check instruction arguments
		var directive DirectiveType
		var instruction machine.Instruction
		var keyword *Token = nil
		var operands []Token

		classify := func(i int) {
			if instruction = parseInstruction(tokens[i].Value); instruction != machine.INSTRUCTION_UNSUPPORTED {
				keyword = &tokens[i]
				operands = tokens[i+1:]
			} else if directive = parseDirective(tokens[i].Value); directive != DIRECTIVE_INVALID {
				keyword = &tokens[i]
				operands = tokens[i+1:]
			}
		}

		classify(0)

		if keyword == nil {
			label := &tokens[0]

			if label.Type != TOKEN_IDENT {
				errs = append(
					errs, &UnknownIdentifierError{label.Position, label.Value},
				)

				continue
			}

			if _, exists := labels[label.Value]; !exists {
				labels[label.Value] = uint16(program)
				labelOrder = append(labelOrder, label.Value)
			} else {
				errs = append(
					errs, &RedeclaredLabelError{label.Position, label.Value},
				)
			}

			// No need to assemble label-only statements
			if len(tokens) == 1 {
				continue
			}

			classify(1)

			if keyword == nil {
				errs = append(
					errs, &UnknownIdentifierError{label.Position, label.Value},
				)

				continue
			}
		}

		switch directive {
		// .END
		case DIRECTIVE_END:
			if count := len(operands); count != 0 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 0, count},
				)
			}

			break lines

		// .ORIG #
		case DIRECTIVE_ORIG:
			if count := len(operands); count != 1 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)

				break
			}

			literal, err := operandLiteral(&operands[0], LITERAL_WORD)

			if err != nil {
				errs = append(errs, err)
				break
			}

			if literal < machine.MEMSPACE_PROGRAM ||
				int(literal) >= machine.MEMORY_SIZE {
				errs = append(
					errs, &InvalidOriginError{operands[0].Position, literal},
				)

				break
			}

			program = uint32(literal)

		// .BYTE #[, #...]
		case DIRECTIVE_BYTE:
			if len(operands) == 0 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
				)

				break
			}

			data := make([]byte, 0, len(operands))

			for i := range operands {
				literal, err := operandLiteral(&operands[i], LITERAL_BYTE)

				if err != nil {
					errs = append(errs, err)
					continue
				}

				data = append(data, byte(literal))
			}

			if len(data) == len(operands) && !emit(data...) {
				break lines
			}

		// .WORD # | LABEL
		case DIRECTIVE_WORD:
			if count := len(operands); count != 1 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)

				break
			}

			switch operands[0].Type {
			case TOKEN_LITERAL:
				literal, err := parseLiteral(&operands[0], LITERAL_WORD)

				if err != nil {
					errs = append(errs, err)
					break
				}

				if !emit(byte(literal>>8), byte(literal)) {
					break lines
				}
			case TOKEN_IDENT:
				labelRefs = append(
					labelRefs,
					LabelRef{
						operands[0].Value,
						uint16(program),
						LITERAL_WORD,
						operands[0].Position,
					},
				)

				if !emit(0x00, 0x00) {
					break lines
				}
			default:
				errs = append(
					errs,
					&InvalidOperandError{
						operands[0].Position,
						[]TokenType{TOKEN_LITERAL, TOKEN_IDENT},
						operands[0].Type,
					},
				)
			}

		// .BLKB #
		case DIRECTIVE_BLKB:
			if count := len(operands); count != 1 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)

				break
			}

			literal, err := operandLiteral(&operands[0], LITERAL_WORD)

			if err != nil {
				errs = append(errs, err)
				break
			}

			if !emit(make([]byte, literal)...) {
				break lines
			}
		}

		if instruction != machine.INSTRUCTION_UNSUPPORTED {
			scratch, ref, instructionErrs := assembleInstruction(
				instruction, keyword, operands,
			)

			errs = append(errs, instructionErrs...)

			if ref != nil {
				labelRefs = append(
					labelRefs,
					LabelRef{
						ref.Value,
						uint16(program),
						LITERAL_ADDR,
						ref.Position,
					},
				)
			}

			if symtable != nil {
				symtable.Symbols[uint16(program)] = lineCursor.LineByte
			}

			if !emit(byte(scratch>>8), byte(scratch)) {
				break lines
			}
		}
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}

	if overflow {
		return nil, errs
	}

	// Label
	// - Validate and resolve label references
	// - Add labels to symbol table
	for _, ref := range labelRefs {
		addr, exists := labels[ref.Label]

		if !exists {
			errs = append(errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}

		switch ref.Size {
		case LITERAL_ADDR:
			memory[ref.Addr] |= byte(addr>>8) & 0x0F
			memory[ref.Addr+1] = byte(addr)
		case LITERAL_WORD:
			memory[ref.Addr] = byte(addr >> 8)
			memory[ref.Addr+1] = byte(addr)
		}
	}

	if symtable != nil {
		for _, label := range labelOrder {
			addr := labels[label]

			if _, exists := symtable.Labels[addr]; !exists {
				symtable.Labels[addr] = label
			}
		}
	}

	result = memory[machine.MEMSPACE_PROGRAM:end]

	return
}
