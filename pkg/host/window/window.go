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

// Package window presents a machine in a desktop window.
package window

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/lassandro/gochip8/pkg/host"
	"github.com/lassandro/gochip8/pkg/machine"
)

const STATUS_HEIGHT = 16

var (
	colorOn     = color.RGBA{0xE0, 0xE0, 0xE0, 0xFF}
	colorOff    = color.RGBA{0x10, 0x10, 0x10, 0xFF}
	colorStatus = color.RGBA{0xBE, 0xBE, 0xBE, 0xFF}
	colorError  = color.RGBA{0xE0, 0x40, 0x40, 0xFF}
)

// Physical keys for each rune of host.KeyMap
var physicalKeys = map[ebiten.Key]rune{
	ebiten.KeyDigit1: '1', ebiten.KeyDigit2: '2',
	ebiten.KeyDigit3: '3', ebiten.KeyDigit4: '4',
	ebiten.KeyQ: 'q', ebiten.KeyW: 'w', ebiten.KeyE: 'e', ebiten.KeyR: 'r',
	ebiten.KeyA: 'a', ebiten.KeyS: 's', ebiten.KeyD: 'd', ebiten.KeyF: 'f',
	ebiten.KeyZ: 'z', ebiten.KeyX: 'x', ebiten.KeyC: 'c', ebiten.KeyV: 'v',
}

// Window implements ebiten.Game. Closing it, or pressing Escape, halts the
// machine. A halted machine stays on screen with its diagnostic until the
// window is closed.
type Window struct {
	Machine     *machine.Machine
	Framebuffer *host.Framebuffer
	Keypad      *host.Keypad

	Scale int
	Title string

	canvas  *ebiten.Image
	version uint64
	drawn   bool
}

func New(
	mc *machine.Machine,
	fb *host.Framebuffer,
	kp *host.Keypad,
	scale int,
) *Window {
	return &Window{
		Machine:     mc,
		Framebuffer: fb,
		Keypad:      kp,
		Scale:       max(scale, 1),
		Title:       "gochip8",
	}
}

// Run blocks on the calling goroutine, which must be the main goroutine,
// until the window closes.
func (w *Window) Run() error {
	width, height := w.Layout(0, 0)

	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(w.Title)
	ebiten.SetRunnableOnUnfocused(true)

	return ebiten.RunGame(w)
}

func (w *Window) Update() error {
	if ebiten.IsWindowBeingClosed() ||
		inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		w.Machine.Halt()
		return ebiten.Termination
	}

	for physical, r := range physicalKeys {
		key, ok := host.KeyMap[r]

		if !ok {
			continue
		}

		if inpututil.IsKeyJustPressed(physical) {
			w.Keypad.Press(key)
		} else if inpututil.IsKeyJustReleased(physical) {
			w.Keypad.Release(key)
		}
	}

	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	if w.canvas == nil {
		w.canvas = ebiten.NewImage(host.WIDTH, host.HEIGHT)
	}

	if version := w.Framebuffer.Version(); !w.drawn || version != w.version {
		w.canvas.WritePixels(w.Framebuffer.RGBA(colorOn, colorOff))
		w.version = version
		w.drawn = true
	}

	options := &ebiten.DrawImageOptions{}
	options.GeoM.Scale(float64(w.Scale), float64(w.Scale))
	screen.DrawImage(w.canvas, options)

	w.drawStatus(screen)
}

func (w *Window) drawStatus(screen *ebiten.Image) {
	face := basicfont.Face7x13
	baseline := host.HEIGHT*w.Scale + STATUS_HEIGHT - 4

	if err := w.Machine.Err(); err != nil {
		text.Draw(screen, err.Error(), face, 4, baseline, colorError)
		return
	}

	var pc uint16
	w.Machine.Inspect(func(state *machine.MachineState) {
		pc = state.PC
	})

	status := fmt.Sprintf("PC %#04x  cycle %d", pc, w.Machine.Cycle())

	if w.Machine.Status() == machine.STATUS_HALTED {
		status += "  halted"
	}

	text.Draw(screen, status, face, 4, baseline, colorStatus)
}

func (w *Window) Layout(_, _ int) (int, int) {
	return host.WIDTH * w.Scale, host.HEIGHT*w.Scale + STATUS_HEIGHT
}
