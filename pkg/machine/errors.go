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

import (
	"errors"
	"fmt"
)

var (
	ErrHalted    = errors.New("Machine is halted")
	ErrNotReady  = errors.New("Machine has already been started")
	ErrNoDisplay = errors.New("No display attached")
	ErrNoClock   = errors.New("Execution clock is disabled")
)

type ProgramSizeError struct {
	Size  int
	Limit int
}

func (err *ProgramSizeError) Error() string {
	return fmt.Sprintf(
		"Program exceeds allowed size\n\twant:<=%d\n\thave:%d",
		err.Limit,
		err.Size,
	)
}

type ProgramPathError struct {
	Path   string
	Reason string
}

func (err *ProgramPathError) Error() string {
	return fmt.Sprintf("%s: %s", err.Path, err.Reason)
}

type UnsupportedError struct {
	Opcode uint16
	PC     uint16
}

func (err *UnsupportedError) Error() string {
	return fmt.Sprintf(
		"Unsupported instruction %#04x at %#04x", err.Opcode, err.PC,
	)
}

type StackError struct {
	Op    string
	PC    uint16
	Depth int
}

func (err *StackError) Error() string {
	switch err.Op {
	case "push":
		return fmt.Sprintf(
			"Stack overflow at %#04x (depth %d)", err.PC, err.Depth,
		)
	default:
		return fmt.Sprintf("Stack underflow at %#04x", err.PC)
	}
}

type AddressError struct {
	Op   string
	Addr int
}

func (err *AddressError) Error() string {
	return fmt.Sprintf(
		"Memory %s out of range\n\twant:<%#04x\n\thave:%#04x",
		err.Op,
		MEMORY_SIZE,
		err.Addr,
	)
}
