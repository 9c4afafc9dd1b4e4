package progress

import (
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/LucasBadico/mailbook/stats"
)

// Bar manages a progress bar for tracking message fetching.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	mu      sync.Mutex
	enabled bool
}

// New creates a new progress bar if logLevel is "info".
func New(total int, logLevel string) *Bar {
	enabled := logLevel == "info" && total > 0

	bar := &Bar{
		total:   total,
		enabled: enabled,
	}

	if enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Fetching messages").
			Start()
		bar.pb = pb
	}

	return bar
}

// Update advances the bar based on the event type.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeFetched:
		b.pb.Increment()
		if evt.MessageID != "" {
			displayID := evt.MessageID
			if len(displayID) > 40 {
				displayID = displayID[:37] + "..."
			}
			b.pb.UpdateTitle("Fetching: " + displayID)
		}
	case stats.EventTypeFetchError:
		b.pb.Increment()
		if evt.Err != nil {
			pterm.Warning.Printf("Skipping %s: %v\n", evt.MessageID, evt.Err)
		}
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the progress bar.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	_, _ = b.pb.Stop()
}

// PrintSummary prints the final run statistics.
func PrintSummary(summary stats.Summary, duration time.Duration, enabled bool) {
	if !enabled {
		return
	}

	pterm.Println()
	pterm.DefaultSection.Println("Export Summary")
	pterm.Info.Printf("Duration: %v\n", duration.Round(time.Millisecond))
	pterm.Info.Printf("Matched: %d\n", summary.Listed)
	pterm.Info.Printf("Fetched: %d\n", summary.Fetched)
	pterm.Info.Printf("Fetch failures (skipped): %d\n", summary.FetchErrors)
	pterm.Info.Printf("Filtered out: %d\n", summary.Filtered)
	pterm.Info.Printf("Empty bodies: %d\n", summary.EmptyBodies)
	pterm.Info.Printf("Documents written: %d\n", summary.Written)
	if summary.Archived > 0 {
		pterm.Info.Printf("Archived to mbox: %d\n", summary.Archived)
	}
	pterm.Info.Printf("Errors: %d\n", summary.Errors)
	if summary.LastError != nil {
		pterm.Error.Printf("Last error: %v\n", summary.LastError)
	}
}
