package report

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// Series outcome statuses as reported in the run summary
const (
	SeriesUpToDate = "up_to_date"
	SeriesUpdated  = "updated"
	SeriesFailed   = "failed"
)

// ChapterFailure describes one chapter that stayed failed after every
// retry round
type ChapterFailure struct {
	Series  string
	Chapter string
	Reason  string
}

// SeriesOutcome is the per-series line of the run summary
type SeriesOutcome struct {
	Slug        string
	Status      string
	Reason      string
	NewChapters int
	Failed      int
}

// Summary aggregates one whole invocation of the sync engine
type Summary struct {
	StartedAt time.Time
	Duration  time.Duration

	Series          []SeriesOutcome
	ChapterFailures []ChapterFailure

	NewChapters   int
	PanelsWritten int
	BytesMirrored int64
	EventLogPath  string
}

// Add records one series outcome into the summary totals
func (s *Summary) Add(o SeriesOutcome, failures []ChapterFailure) {
	s.Series = append(s.Series, o)
	s.ChapterFailures = append(s.ChapterFailures, failures...)
	s.NewChapters += o.NewChapters
}

// Counts returns the number of series per outcome status
func (s *Summary) Counts() (upToDate, updated, failed int) {
	for _, o := range s.Series {
		switch o.Status {
		case SeriesUpToDate:
			upToDate++
		case SeriesUpdated:
			updated++
		case SeriesFailed:
			failed++
		}
	}
	return
}

// HasFailures reports whether any series aborted or any chapter stayed
// failed. This is what decides the process exit status.
func (s *Summary) HasFailures() bool {
	_, _, failed := s.Counts()
	return failed > 0 || len(s.ChapterFailures) > 0
}

// Print writes the end-of-run summary to stdout
func (s *Summary) Print() {
	upToDate, updated, failed := s.Counts()

	fmt.Println()
	fmt.Println("══════════════════════════════════════════════════")
	fmt.Println("  SYNC SUMMARY")
	fmt.Println("══════════════════════════════════════════════════")
	fmt.Printf("Series processed:   %d\n", len(s.Series))
	fmt.Printf("  - Up to date:     %d\n", upToDate)
	fmt.Printf("  - Updated:        %d\n", updated)
	fmt.Printf("  - Failed:         %d\n", failed)
	fmt.Printf("New chapters:       %s\n", humanize.Comma(int64(s.NewChapters)))
	fmt.Printf("Panels written:     %s\n", humanize.Comma(int64(s.PanelsWritten)))
	if s.BytesMirrored > 0 {
		fmt.Printf("Media mirrored:     %s\n", humanize.IBytes(uint64(s.BytesMirrored)))
	}
	fmt.Printf("Duration:           %s\n", s.Duration.Round(time.Second))

	if len(s.ChapterFailures) > 0 {
		fmt.Println()
		fmt.Printf("Failed chapters (%d):\n", len(s.ChapterFailures))
		for _, f := range s.ChapterFailures {
			fmt.Printf("  - %s chapter %s: %s\n", f.Series, f.Chapter, f.Reason)
		}
	}

	for _, o := range s.Series {
		if o.Status == SeriesFailed {
			fmt.Fprintf(os.Stderr, "Series %s failed: %s\n", o.Slug, o.Reason)
		}
	}

	if s.EventLogPath != "" {
		fmt.Println()
		fmt.Printf("Event log: %s\n", s.EventLogPath)
	}
	fmt.Println("══════════════════════════════════════════════════")
}
