package syncer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// WatchOnline polls p every interval and calls onChange whenever
// reachability flips. The first check always reports. It returns when ctx
// is done.
func WatchOnline(ctx context.Context, p Pinger, interval time.Duration, log logging.Logger, onChange func(online bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	known := false
	online := false
	for {
		up := p.Ping(ctx) == nil
		if !known || up != online {
			known, online = true, up
			log.Info(ctx, "connectivity changed", "online", up)
			onChange(up)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
