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
	"encoding/binary"
	"sync"
)

const (
	TONE_SAMPLE_RATE = 44100
	TONE_FREQUENCY   = 440
	TONE_VOLUME      = 0x1800
)

// Tone is a mono signed 16-bit little-endian square wave. It produces
// silence whenever Active reports false.
type Tone struct {
	SampleRate int
	Frequency  int
	Volume     int16
	Active     func() bool

	mutex sync.Mutex
	phase int
}

func NewTone(active func() bool) *Tone {
	return &Tone{
		SampleRate: TONE_SAMPLE_RATE,
		Frequency:  TONE_FREQUENCY,
		Volume:     TONE_VOLUME,
		Active:     active,
	}
}

func (tone *Tone) Read(p []byte) (int, error) {
	tone.mutex.Lock()
	defer tone.mutex.Unlock()

	n := len(p) &^ 1
	active := tone.Active != nil && tone.Active()

	period := tone.SampleRate / max(tone.Frequency, 1)
	period = max(period, 2)

	for i := 0; i < n; i += 2 {
		var sample int16

		if active {
			if tone.phase < period/2 {
				sample = tone.Volume
			} else {
				sample = -tone.Volume
			}

			tone.phase = (tone.phase + 1) % period
		}

		binary.LittleEndian.PutUint16(p[i:], uint16(sample))
	}

	if !active {
		tone.phase = 0
	}

	return n, nil
}
