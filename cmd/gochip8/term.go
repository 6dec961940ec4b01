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
	"context"
	"log"
	"os"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/lassandro/gochip8/pkg/host"
)

const keyPollInterval = 5 * time.Millisecond

var termMutex sync.Mutex
var termRestore *term.State
var termRaw bool

func stdinFd() int {
	return int(os.Stdin.Fd())
}

// Puts stdin in raw, non-blocking mode. Does nothing when stdin is not a
// terminal.
func enterRawTerm() error {
	termMutex.Lock()
	defer termMutex.Unlock()

	fd := stdinFd()

	if termRaw || !term.IsTerminal(fd) {
		return nil
	}

	state, err := term.MakeRaw(fd)

	if err != nil {
		return err
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		term.Restore(fd, state)
		return err
	}

	termRestore = state
	termRaw = true

	return nil
}

// Restores the terminal, reporting whether it had been raw
func exitRawTerm() bool {
	termMutex.Lock()
	defer termMutex.Unlock()

	if !termRaw {
		return false
	}

	fd := stdinFd()

	if err := unix.SetNonblock(fd, false); err != nil {
		log.Println(err)
	}

	if err := term.Restore(fd, termRestore); err != nil {
		log.Println(err)
	}

	termRaw = false
	return true
}

func checkTermSize() {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))

	if err != nil {
		return
	}

	if width < host.WIDTH || height < host.HEIGHT/2+1 {
		log.Printf(
			"Terminal is %dx%d, the display needs %dx%d\r",
			width, height, host.WIDTH, host.HEIGHT/2+1,
		)
	}
}

// Polls stdin while the terminal is raw. Terminals only report presses, so
// each key is tapped on the keypad. Ctrl-C calls interrupt.
func readKeys(ctx context.Context, kp *host.Keypad, interrupt func()) {
	buf := make([]byte, 16)

	ticker := time.NewTicker(keyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n := 0

		termMutex.Lock()
		if termRaw {
			n, _ = unix.Read(stdinFd(), buf)
		}
		termMutex.Unlock()

		for _, b := range buf[:max(n, 0)] {
			if b == 0x03 {
				interrupt()
				continue
			}

			if key, ok := host.KeyMap[unicode.ToLower(rune(b))]; ok {
				kp.Tap(key)
			}
		}
	}
}
