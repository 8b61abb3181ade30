package engine

import (
	"context"
	"time"

	"github.com/franz/manga-mirror/internal/util"
)

// AttemptFn processes one work item once. A nil return marks the item
// done; an error keeps it in the carryover for the next round.
type AttemptFn func(ctx context.Context, item WorkItem) error

// FailedItem is a work item that exhausted every retry round
type FailedItem struct {
	Item   WorkItem
	Reason string
}

// RetryController drives bounded retry rounds over a work list. Round 1
// processes the full list; each later round processes only the carryover
// that still failed, up to MaxRounds rounds total. The delay between
// individual attempts grows with the round number to back off a source
// that keeps failing.
type RetryController struct {
	MaxRounds int
	Delay     time.Duration
}

// Run processes items and returns how many succeeded plus the items
// still failing after the final round. Cancellation is honored between
// attempts: remaining items are reported failed with the context error
// and stay eligible for the next scheduled invocation.
func (rc *RetryController) Run(ctx context.Context, items []WorkItem, attempt AttemptFn) (int, []FailedItem) {
	maxRounds := rc.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 3
	}

	succeeded := 0
	pending := items

	for round := 1; round <= maxRounds && len(pending) > 0; round++ {
		if round > 1 {
			util.InfoLog("Retry round %d/%d: %d chapters still failing", round, maxRounds, len(pending))
		}

		delay := rc.Delay * time.Duration(round)
		var carryover []FailedItem

		for i, item := range pending {
			if err := ctx.Err(); err != nil {
				// stop cleanly; the ledger lets the next run resume
				for _, rest := range pending[i:] {
					carryover = append(carryover, FailedItem{Item: rest, Reason: err.Error()})
				}
				return succeeded, carryover
			}

			if err := attempt(ctx, item); err != nil {
				carryover = append(carryover, FailedItem{Item: item, Reason: err.Error()})
			} else {
				succeeded++
			}

			if delay > 0 && i < len(pending)-1 {
				time.Sleep(delay)
			}
		}

		if round == maxRounds {
			return succeeded, carryover
		}

		pending = make([]WorkItem, 0, len(carryover))
		for _, f := range carryover {
			pending = append(pending, f.Item)
		}
	}

	return succeeded, nil
}
