// Package surface provides diff review surfaces for staged edits.
//
// Information Hiding:
// - Diff rendering and first-difference lookup hidden
// - External editor and lint command execution hidden
// - Settle delay for surfaces without a ready signal hidden in Delay
package surface

import (
	"context"
	"time"
)

// DefaultSettleDelay is the wait after an update before scrolling, for
// surfaces whose rendering cannot be observed.
const DefaultSettleDelay = 300 * time.Millisecond

// Delay implements Settle as a fixed wait. Embed it in surfaces that render
// asynchronously and expose no ready signal. Zero waits not at all.
type Delay struct {
	Duration time.Duration
}

// Settle waits for the configured duration or until ctx is done.
func (d Delay) Settle(ctx context.Context) error {
	if d.Duration <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
