package engine

import (
	"context"
	"errors"
	"testing"
)

func workItems(ids ...string) []WorkItem {
	out := make([]WorkItem, 0, len(ids))
	for _, id := range ids {
		num, _ := ParseNumber(id)
		out = append(out, WorkItem{Number: num, Ref: ChapterRef{RawID: id}})
	}
	return out
}

func TestRetryControllerBoundedAttempts(t *testing.T) {
	attempts := 0
	attempt := func(_ context.Context, _ WorkItem) error {
		attempts++
		return errors.New("still broken")
	}

	rc := &RetryController{MaxRounds: 3}
	succeeded, failed := rc.Run(context.Background(), workItems("1"), attempt)

	if attempts != 3 {
		t.Errorf("always-failing item attempted %d times, want exactly 3", attempts)
	}
	if succeeded != 0 {
		t.Errorf("succeeded = %d, want 0", succeeded)
	}
	if len(failed) != 1 {
		t.Fatalf("failed items = %d, want the item reported once", len(failed))
	}
	if failed[0].Reason != "still broken" {
		t.Errorf("reason = %q", failed[0].Reason)
	}
}

func TestRetryControllerCarryoverOnly(t *testing.T) {
	perItem := map[string]int{}
	attempt := func(_ context.Context, item WorkItem) error {
		num := item.Number.String()
		perItem[num]++
		// chapter 2 needs a second round, chapter 3 never recovers
		switch num {
		case "2":
			if perItem[num] < 2 {
				return errors.New("transient")
			}
			return nil
		case "3":
			return errors.New("permanent")
		default:
			return nil
		}
	}

	rc := &RetryController{MaxRounds: 3}
	succeeded, failed := rc.Run(context.Background(), workItems("1", "2", "3"), attempt)

	if succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", succeeded)
	}
	if perItem["1"] != 1 {
		t.Errorf("chapter 1 re-attempted after success: %d attempts", perItem["1"])
	}
	if perItem["2"] != 2 {
		t.Errorf("chapter 2 attempted %d times, want 2", perItem["2"])
	}
	if perItem["3"] != 3 {
		t.Errorf("chapter 3 attempted %d times, want 3", perItem["3"])
	}
	if len(failed) != 1 || failed[0].Item.Number.String() != "3" {
		t.Fatalf("unexpected failed set: %+v", failed)
	}
}

func TestRetryControllerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	attempt := func(_ context.Context, _ WorkItem) error {
		attempts++
		cancel()
		return nil
	}

	rc := &RetryController{MaxRounds: 3}
	succeeded, failed := rc.Run(ctx, workItems("1", "2", "3"), attempt)

	if attempts != 1 {
		t.Errorf("attempts after cancel = %d, want 1", attempts)
	}
	if succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", succeeded)
	}
	if len(failed) != 2 {
		t.Fatalf("remaining items should be reported failed, got %d", len(failed))
	}
	for _, f := range failed {
		if f.Reason != context.Canceled.Error() {
			t.Errorf("reason = %q, want context cancellation", f.Reason)
		}
	}
}
