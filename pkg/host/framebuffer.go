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
	"image/color"
	"strings"
	"sync"

	"github.com/lassandro/gochip8/pkg/machine"
)

const (
	WIDTH  = machine.DISPLAY_WIDTH
	HEIGHT = machine.DISPLAY_HEIGHT
)

// Framebuffer is a machine.Display safe for a renderer to read while the
// machine draws into it.
type Framebuffer struct {
	mutex   sync.RWMutex
	pixels  [WIDTH * HEIGHT]bool
	version uint64
}

func NewFramebuffer() *Framebuffer {
	return &Framebuffer{}
}

func inBounds(x, y int) bool {
	return x >= 0 && x < WIDTH && y >= 0 && y < HEIGHT
}

func (fb *Framebuffer) GetPixel(x, y int) byte {
	if !inBounds(x, y) {
		return 0
	}

	fb.mutex.RLock()
	defer fb.mutex.RUnlock()

	if fb.pixels[x+y*WIDTH] {
		return 1
	}

	return 0
}

func (fb *Framebuffer) SetPixel(x, y int, value byte) {
	if !inBounds(x, y) {
		return
	}

	fb.mutex.Lock()
	defer fb.mutex.Unlock()

	if fb.pixels[x+y*WIDTH] != (value != 0) {
		fb.pixels[x+y*WIDTH] = value != 0
		fb.version++
	}
}

func (fb *Framebuffer) Clear() {
	fb.mutex.Lock()
	defer fb.mutex.Unlock()

	fb.pixels = [WIDTH * HEIGHT]bool{}
	fb.version++
}

// Pixels returns a copy of the grid in row-major order.
func (fb *Framebuffer) Pixels() []bool {
	fb.mutex.RLock()
	defer fb.mutex.RUnlock()

	pixels := make([]bool, len(fb.pixels))
	copy(pixels, fb.pixels[:])
	return pixels
}

// Version changes whenever a pixel changes, letting renderers skip frames
// that are identical to the last one drawn.
func (fb *Framebuffer) Version() uint64 {
	fb.mutex.RLock()
	defer fb.mutex.RUnlock()

	return fb.version
}

// String renders the grid as text, one line per row.
func (fb *Framebuffer) String() string {
	pixels := fb.Pixels()

	var builder strings.Builder
	builder.Grow((WIDTH + 1) * HEIGHT)

	for y := 0; y < HEIGHT; y++ {
		for x := 0; x < WIDTH; x++ {
			if pixels[x+y*WIDTH] {
				builder.WriteByte('#')
			} else {
				builder.WriteByte('.')
			}
		}

		builder.WriteByte('\n')
	}

	return builder.String()
}

// RGBA converts the grid to 8-bit RGBA pixel data in row-major order.
func (fb *Framebuffer) RGBA(on, off color.RGBA) []byte {
	pixels := fb.Pixels()
	data := make([]byte, len(pixels)*4)

	for i, lit := range pixels {
		c := off
		if lit {
			c = on
		}

		data[i*4+0] = c.R
		data[i*4+1] = c.G
		data[i*4+2] = c.B
		data[i*4+3] = c.A
	}

	return data
}
