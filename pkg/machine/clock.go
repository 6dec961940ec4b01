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
	"context"
	"sync"
	"time"
)

// Clock runs a task at a fixed rate on its own goroutine. Ticks never
// overlap; a tick that is still running when the next one is due delays it.
type Clock struct {
	Rate int

	mutex  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewClock(rate int) *Clock {
	return &Clock{Rate: rate}
}

func (clk *Clock) Period() time.Duration {
	if clk.Rate <= 0 {
		return 0
	}

	return time.Second / time.Duration(clk.Rate)
}

// Start schedules task until ctx is done or Stop is called. A clock with a
// non-positive rate never ticks. Starting a running clock does nothing.
func (clk *Clock) Start(ctx context.Context, task func()) {
	clk.mutex.Lock()
	defer clk.mutex.Unlock()

	if clk.done != nil {
		return
	}

	ctx, clk.cancel = context.WithCancel(ctx)
	clk.done = make(chan struct{})

	go func(done chan struct{}, period time.Duration) {
		defer close(done)

		if period == 0 {
			<-ctx.Done()
			return
		}

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// A stop that raced with the tick wins
				if ctx.Err() != nil {
					return
				}

				task()
			}
		}
	}(clk.done, clk.Period())
}

// Stop prevents further ticks. It does not wait for an in-flight tick and
// is safe to call from within the task.
func (clk *Clock) Stop() {
	clk.mutex.Lock()
	defer clk.mutex.Unlock()

	if clk.cancel != nil {
		clk.cancel()
	}
}

// Wait blocks until the clock's goroutine has exited. It returns at once for
// a clock that was never started.
func (clk *Clock) Wait() {
	clk.mutex.Lock()
	done := clk.done
	clk.mutex.Unlock()

	if done != nil {
		<-done
	}
}
