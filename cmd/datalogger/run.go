// cmd/datalogger/run.go
package main

import (
	"context"
	"time"

	"github.com/tamzrod/datalogger/internal/clock"
)

type updater interface {
	Update(elapsedMs int32)
}

// run ticks u until ctx is done, passing the clock time elapsed since the
// previous tick. A late tick passes a larger delta; nothing is replayed.
func run(ctx context.Context, u updater, clk clock.Clock, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	last := clk.Millis()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := clk.Millis()
			u.Update(now - last)
			last = now
		}
	}
}
