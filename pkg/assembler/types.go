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
	"fmt"
	"strings"

	"github.com/lassandro/gochip8/pkg/machine"
)

type LiteralType uint
type TokenType uint
type DirectiveType uint
type OperandLayout uint

type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

type Token struct {
	Type     TokenType
	Position Cursor
	Value    string
}

// SymTable maps program addresses back to the source they were assembled
// from. Symbols holds the byte offset of each instruction's line.
type SymTable struct {
	Source  string
	Symbols map[uint16]int64
	Labels  map[uint16]string
}

func NewSymTable(source string) *SymTable {
	return &SymTable{
		Source:  source,
		Symbols: make(map[uint16]int64),
		Labels:  make(map[uint16]string),
	}
}

// Label returns the first label declared at addr, if any.
func (table *SymTable) Label(addr uint16) (string, bool) {
	if table == nil {
		return "", false
	}

	label, ok := table.Labels[addr]
	return label, ok
}

func (tokenType TokenType) String() string {
	switch tokenType {
	case TOKEN_IDENT:
		return "Identifier"
	case TOKEN_DIRECTIVE:
		return "Directive"
	case TOKEN_LITERAL:
		return "Literal"
	default:
		return "<invalid>"
	}
}

// GetPosition is promoted to every error that embeds the Cursor of the
// offending token.
func (cursor Cursor) GetPosition() Cursor {
	return cursor
}

type TokenError interface {
	error
	GetPosition() Cursor
}

func positioned(cursor Cursor, format string, args ...interface{}) string {
	return fmt.Sprintf("%02d:%02d: ", cursor.Line, cursor.Column) +
		fmt.Sprintf(format, args...)
}

type InvalidOperandError struct {
	Cursor
	Required []TokenType
	Received TokenType
}

func (err *InvalidOperandError) Error() string {
	required := make([]string, len(err.Required))

	for i, tokenType := range err.Required {
		required[i] = tokenType.String()
	}

	return positioned(
		err.Cursor,
		"Invalid operands\n\twant:%s\n\thave:%s",
		strings.Join(required, " or "),
		err.Received,
	)
}

type InvalidNumArgumentsError struct {
	Cursor
	Required int
	Received int
}

func (err *InvalidNumArgumentsError) Error() string {
	return positioned(
		err.Cursor,
		"Invalid number of arguments\n\twant:%d\n\thave:%d",
		err.Required,
		err.Received,
	)
}

type InvalidLiteralError struct {
	Cursor
}

func (err *InvalidLiteralError) Error() string {
	return positioned(err.Cursor, "Invalid numeric literal")
}

// Required is the largest accepted value, or 0 for a negative literal.
type OversizedLiteralError struct {
	Cursor
	Required interface{}
	Received interface{}
}

func (err *OversizedLiteralError) Error() string {
	return positioned(
		err.Cursor,
		"Literal exceeds allowed size\n\twant:<=%d\n\thave:%d",
		err.Required,
		err.Received,
	)
}

type InvalidRegisterError struct {
	Cursor
}

func (err *InvalidRegisterError) Error() string {
	return positioned(err.Cursor, "Invalid register, want V0-VF")
}

type UnexpectedCharacterError struct {
	Cursor
	Received rune
}

func (err *UnexpectedCharacterError) Error() string {
	return positioned(err.Cursor, "Unexpected character %c", err.Received)
}

type OversizedCharacterError struct {
	Cursor
}

func (err *OversizedCharacterError) Error() string {
	return positioned(err.Cursor, "Character outside ASCII")
}

type RedeclaredLabelError struct {
	Cursor
	Received string
}

func (err *RedeclaredLabelError) Error() string {
	return positioned(err.Cursor, "Label '%s' already declared", err.Received)
}

type UnknownLabelError struct {
	Cursor
	Received string
}

func (err *UnknownLabelError) Error() string {
	return positioned(err.Cursor, "Unknown label '%s'", err.Received)
}

type UnknownIdentifierError struct {
	Cursor
	Received string
}

func (err *UnknownIdentifierError) Error() string {
	return positioned(err.Cursor, "Unknown identifier '%s'", err.Received)
}

type InvalidOriginError struct {
	Cursor
	Received uint16
}

func (err *InvalidOriginError) Error() string {
	return positioned(
		err.Cursor,
		"Origin outside program memory\n\twant:%#04x-%#04x\n\thave:%#04x",
		machine.MEMSPACE_PROGRAM,
		machine.MEMORY_SIZE-1,
		err.Received,
	)
}

type OversizedBinaryError struct{}

func (err *OversizedBinaryError) Error() string {
	return fmt.Sprintf(
		"Program exceeds %d bytes of program memory", machine.PROGRAM_SIZE_MAX,
	)
}
