// Package domain declares the weekly payout batcher contract.
package domain

import (
	"context"
	"time"
)

// Summary reports one batch run's outcome.
type Summary struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Experts     int
	Submitted   int
	Skipped     int
	Failed      int
	TotalAmount int64
}

type Batcher interface {
	// Run settles the Monday-Friday window containing now. Per-expert
	// failures are logged and accumulated; the returned error joins them
	// without aborting the remaining experts.
	Run(ctx context.Context, now time.Time) (Summary, error)
}
