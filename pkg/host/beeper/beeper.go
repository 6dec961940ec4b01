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

// Package beeper plays a tone while the machine's sound timer is running.
package beeper

import (
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/lassandro/gochip8/pkg/host"
)

type Beeper struct {
	ctx    *oto.Context
	player *oto.Player
	tone   *host.Tone
	mutex  sync.Mutex
}

// New opens the audio device. active is polled from the audio thread and
// gates the tone, typically Machine.SoundActive.
func New(active func() bool) (*Beeper, error) {
	tone := host.NewTone(active)

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   tone.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})

	if err != nil {
		return nil, err
	}

	<-ready

	return &Beeper{ctx: ctx, tone: tone}, nil
}

func (bp *Beeper) Start() {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	if bp.player == nil {
		bp.player = bp.ctx.NewPlayer(bp.tone)
		bp.player.Play()
	}
}

func (bp *Beeper) Close() error {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	if bp.player == nil {
		return nil
	}

	err := bp.player.Close()
	bp.player = nil

	return err
}
