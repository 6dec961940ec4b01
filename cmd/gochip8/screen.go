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
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lassandro/gochip8/pkg/host"
)

const screenRefreshRate = 30

// Renders the framebuffer two rows per line with half block characters
type screen struct {
	fb  *host.Framebuffer
	out io.Writer

	mutex   sync.Mutex
	paused  bool
	drawn   bool
	version uint64
}

func newScreen(fb *host.Framebuffer, out io.Writer) *screen {
	return &screen{fb: fb, out: out}
}

func renderHalfBlocks(pixels []bool) string {
	var builder strings.Builder

	for y := 0; y < host.HEIGHT; y += 2 {
		for x := 0; x < host.WIDTH; x++ {
			top := pixels[x+y*host.WIDTH]
			bottom := y+1 < host.HEIGHT && pixels[x+(y+1)*host.WIDTH]

			switch {
			case top && bottom:
				builder.WriteRune('█')
			case top:
				builder.WriteRune('▀')
			case bottom:
				builder.WriteRune('▄')
			default:
				builder.WriteByte(' ')
			}
		}

		builder.WriteString("\r\n")
	}

	return builder.String()
}

// Pause stops drawing until Resume, which forces a full redraw
func (scr *screen) Pause() {
	scr.mutex.Lock()
	defer scr.mutex.Unlock()

	scr.paused = true
}

func (scr *screen) Resume() {
	scr.mutex.Lock()
	defer scr.mutex.Unlock()

	scr.paused = false
	scr.drawn = false
}

// Draw redraws the display if it changed since the last draw
func (scr *screen) Draw() {
	scr.mutex.Lock()
	defer scr.mutex.Unlock()

	if scr.paused {
		return
	}

	version := scr.fb.Version()

	if scr.drawn && version == scr.version {
		return
	}

	home := "\033[H"
	if !scr.drawn {
		home += "\033[2J"
	}

	io.WriteString(scr.out, home+renderHalfBlocks(scr.fb.Pixels()))

	scr.version = version
	scr.drawn = true
}

func (scr *screen) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / screenRefreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scr.Draw()
		}
	}
}
