package capture

import (
	"fmt"
	"sync"
	"time"
)

// FormatDuration renders whole seconds as MM:SS. Minutes are not capped, so
// an hour reads "60:00".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// durationTicker calls update once after the settle delay and then every
// interval until stopped.
type durationTicker struct {
	stopCh chan struct{}
	once   sync.Once
}

func startDurationTicker(settle, interval time.Duration, update func()) *durationTicker {
	t := &durationTicker{stopCh: make(chan struct{})}

	go func() {
		settleTimer := time.NewTimer(settle)
		defer settleTimer.Stop()

		select {
		case <-settleTimer.C:
		case <-t.stopCh:
			return
		}
		update()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				update()
			case <-t.stopCh:
				return
			}
		}
	}()

	return t
}

// Stop ends the goroutine. An update already in flight is discarded by the
// session because it checks the ticker is still current.
func (t *durationTicker) Stop() {
	t.once.Do(func() { close(t.stopCh) })
}
