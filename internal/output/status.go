package output

import (
	"context"
	"fmt"
	"time"
)

func StatusBar(ctx context.Context, refreshRate time.Duration, printF func()) {
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printF()
		case <-ctx.Done():
			return
		}
	}
}

// SamplingStatus is a point-in-time view of a running sampling session.
type SamplingStatus struct {
	PassRate  uint64
	Threads   int
	Symbols   int
	Modules   int
	QueueUtil int
}

func PrettySamplingStatus(s SamplingStatus) string {
	return fmt.Sprintf("\r%-16s %-12s %-14s %-12s %-30s",
		fmt.Sprintf("Passes/s: %4d", s.PassRate),
		fmt.Sprintf("Threads: %3d", s.Threads),
		fmt.Sprintf("Symbols: %5d", s.Symbols),
		fmt.Sprintf("Modules: %3d", s.Modules),
		fmt.Sprintf("Queue: [%s] %3d%%", ProgressBar(s.QueueUtil, 10), s.QueueUtil),
	)
}
