package tui

import (
	"time"

	"github.com/f9-o/eportal/internal/portal"
)

// Entry is one notification from the login engine.
type Entry struct {
	Time     time.Time
	Category string
	Message  string
}

// Sink is a [portal.Observer] that queues notifications for the viewer.
// When the queue is full new entries are dropped so the engine never blocks.
type Sink struct {
	ch  chan Entry
	now func() time.Time
}

var _ portal.Observer = (*Sink)(nil)

// NewSink returns a [*Sink] buffering up to size entries.
func NewSink(size int) *Sink {
	return &Sink{ch: make(chan Entry, size), now: time.Now}
}

// Notify implements [portal.Observer].
func (s *Sink) Notify(category, message string) {
	select {
	case s.ch <- Entry{Time: s.now(), Category: category, Message: message}:
	default:
	}
}

// Entries returns the queue the viewer drains.
func (s *Sink) Entries() <-chan Entry {
	return s.ch
}
