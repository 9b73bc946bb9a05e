package pci

import (
	"context"
	"strings"
	"time"
)

// On boot an external adapter can enumerate a few hundred milliseconds
// after the internal bus scan completes. Six attempts half a second apart
// cover that window without hanging forever when the adapter is truly
// absent.
const (
	DefaultPollAttempts = 6
	DefaultPollInterval = 500 * time.Millisecond
)

// AwaitPresence polls the raw device listing until exactly one entry
// matches the target's kernel-form slot, or the attempt budget runs out.
// The delay between attempts is fixed, no backoff. Returns true as soon
// as the device is observed, false once the budget is exhausted.
// Non-positive attempts or interval select the defaults.
func AwaitPresence(ctx context.Context, lister Lister, target Address, attempts int, interval time.Duration) (bool, error) {
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	slot := target.KernelForm()

	for attempt := 1; attempt <= attempts; attempt++ {
		lines, err := lister.DisplayDevices(ctx)
		if err != nil {
			return false, err
		}

		if matchCount(lines, slot) == 1 {
			return true, nil
		}

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}

	return false, nil
}

func matchCount(lines []string, slot string) int {
	count := 0
	for _, line := range lines {
		entry, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		if StripDomain(entry) == slot {
			count++
		}
	}
	return count
}
