// Package progress renders per-lane progress bars for scan loops.
package progress

import (
	"context"
	"errors"
)

// ErrNotStarted is returned when a display is used before Start.
var ErrNotStarted = errors.New("display not started")

// Bar is the display handle for a single lane.
type Bar interface {
	// SetDescription replaces the label shown in front of the bar.
	SetDescription(desc string)
	// Add advances the bar by n units; n may be zero to only redraw.
	Add(n int)
	// Close marks the bar finished. Further calls are ignored.
	Close()
}

// Display owns the bars of one run.
type Display interface {
	// Start prepares the display for rendering.
	Start(ctx context.Context) error
	// Attach creates the bar for lane with the given total units.
	Attach(lane, total int) (Bar, error)
	// Seal signals that no more updates will arrive.
	Seal()
	// Wait blocks until rendering has finished.
	Wait() error
}
