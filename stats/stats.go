package stats

import (
	"sync"
)

type Stage string

const (
	StageList    Stage = "list"
	StageFetch   Stage = "fetch"
	StageConvert Stage = "convert"
	StageWrite   Stage = "write"
)

type EventType string

const (
	EventTypeListed     EventType = "listed"
	EventTypeFetched    EventType = "fetched"
	EventTypeFetchError EventType = "fetch_error"
	EventTypeFiltered   EventType = "filtered"
	EventTypeEmptyBody  EventType = "empty_body"
	EventTypeWritten    EventType = "written"
	EventTypeArchived   EventType = "archived"
	EventTypeError      EventType = "error"
)

type Event struct {
	Stage     Stage
	Type      EventType
	MessageID string
	Err       error
	Detail    string
}

type Summary struct {
	Listed      int
	Fetched     int
	FetchErrors int
	Filtered    int
	EmptyBodies int
	Written     int
	Archived    int
	Errors      int
	LastError   error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"listed", s.Listed,
		"fetched", s.Fetched,
		"fetchErrors", s.FetchErrors,
		"filtered", s.Filtered,
		"emptyBodies", s.EmptyBodies,
		"written", s.Written,
		"archived", s.Archived,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector accumulates pipeline events into a Summary. The pipeline
// itself is sequential; the mutex only guards against observers
// reading a snapshot mid-run.
type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Record(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeListed:
		c.summary.Listed++
	case EventTypeFetched:
		c.summary.Fetched++
	case EventTypeFetchError:
		c.summary.FetchErrors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	case EventTypeFiltered:
		c.summary.Filtered++
	case EventTypeEmptyBody:
		c.summary.EmptyBodies++
	case EventTypeWritten:
		c.summary.Written++
	case EventTypeArchived:
		c.summary.Archived++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}
