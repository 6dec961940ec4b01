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

package host

import (
	"sync"

	"github.com/lassandro/gochip8/pkg/machine"
)

// Conventional layout of the hex keypad on the left of a QWERTY keyboard:
//
//	1 2 3 4      1 2 3 C
//	Q W E R  ->  4 5 6 D
//	A S D F      7 8 9 E
//	Z X C V      A 0 B F
var KeyMap = map[rune]byte{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// Keypad is a machine.Controls fed by a host input source.
//
// PollKey uses a latch: the first poll with nothing pending arms it, and
// only a key pressed after that is reported, once. Keys already held when
// a program starts waiting therefore do not satisfy the wait.
type Keypad struct {
	mutex   sync.Mutex
	pressed [machine.KEY_COUNT]bool
	tapped  [machine.KEY_COUNT]bool
	armed   bool
	pending int
}

func NewKeypad() *Keypad {
	return &Keypad{pending: -1}
}

func (kp *Keypad) Press(key byte) {
	if int(key) >= machine.KEY_COUNT {
		return
	}

	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	kp.press(key, false)
}

// A tap is always a fresh press, even if an earlier tap of the same key was
// never consumed. A held key only counts again after a release.
func (kp *Keypad) press(key byte, tap bool) {
	if (tap || !kp.pressed[key]) && kp.armed && kp.pending < 0 {
		kp.pending = int(key)
	}

	kp.pressed[key] = true
}

func (kp *Keypad) Release(key byte) {
	if int(key) >= machine.KEY_COUNT {
		return
	}

	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	kp.pressed[key] = false
	kp.tapped[key] = false
}

// Tap presses a key that is released by the first query that sees it, for
// hosts that never report key releases.
func (kp *Keypad) Tap(key byte) {
	if int(key) >= machine.KEY_COUNT {
		return
	}

	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	kp.press(key, true)
	kp.tapped[key] = true
}

func (kp *Keypad) IsKeyPressed(key byte) bool {
	if int(key) >= machine.KEY_COUNT {
		return false
	}

	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	pressed := kp.pressed[key]

	if kp.tapped[key] {
		kp.pressed[key] = false
		kp.tapped[key] = false
	}

	return pressed
}

func (kp *Keypad) IsKeyNotPressed(key byte) bool {
	return !kp.IsKeyPressed(key)
}

func (kp *Keypad) PollKey() (byte, bool) {
	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	if kp.pending >= 0 {
		key := byte(kp.pending)
		kp.pending = -1
		kp.armed = false

		if kp.tapped[key] {
			kp.pressed[key] = false
			kp.tapped[key] = false
		}

		return key, true
	}

	kp.armed = true
	return 0, false
}

// Held returns the keys currently down.
func (kp *Keypad) Held() []byte {
	kp.mutex.Lock()
	defer kp.mutex.Unlock()

	keys := make([]byte, 0, machine.KEY_COUNT)

	for key, pressed := range kp.pressed {
		if pressed {
			keys = append(keys, byte(key))
		}
	}

	return keys
}
