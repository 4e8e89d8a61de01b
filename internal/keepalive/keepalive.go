// Package keepalive runs the connection watcher: a ticker that probes the
// portal and logs in again whenever the device has dropped off.
package keepalive

import (
	"context"
	"time"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/internal/core/logger"
	"github.com/f9-o/eportal/internal/core/state"
	"github.com/f9-o/eportal/internal/portal"
	"github.com/f9-o/eportal/pkg/errs"
)

// DefaultInterval is how often the portal is checked when none is configured.
const DefaultInterval = 60 * time.Second

// OfflineThreshold is the number of consecutive failed checks after which
// the watcher reports the portal as unreachable.
const OfflineThreshold = 3

// Checker is the part of [*portal.Orchestrator] the watcher needs.
type Checker interface {
	Ensure(ctx context.Context) (portal.Outcome, error)
}

// Store persists what the watcher observes. [*state.DB] implements it.
type Store interface {
	PutLoginRecord(rec v1.LoginRecord) (v1.LoginRecord, error)
	PutConnectionEvent(ev v1.ConnectionEvent) error
}

var _ Store = (*state.DB)(nil)

// Engine checks the connection on a fixed interval.
type Engine struct {
	checker  Checker
	store    Store
	log      *logger.Logger
	interval time.Duration
	userID   string
	events   chan v1.ConnectionEvent // external consumers (TUI, CLI) read from this
	now      func() time.Time

	failCount int
}

// NewEngine creates an [*Engine]. A nil store disables persistence and a
// non-positive interval means [DefaultInterval].
// The events channel is buffered; consumers should drain it promptly.
func NewEngine(checker Checker, store Store, log *logger.Logger, interval time.Duration, userID string) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		checker:  checker,
		store:    store,
		log:      log,
		interval: interval,
		userID:   userID,
		events:   make(chan v1.ConnectionEvent, 64),
		now:      time.Now,
	}
}

// Events returns the channel on which ConnectionEvents are published.
func (e *Engine) Events() <-chan v1.ConnectionEvent {
	return e.events
}

// Interval returns the check period.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// Run checks once immediately and then on every tick until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info("keepalive started", "interval", e.interval)
	defer e.log.Info("keepalive stopped")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Check(ctx)
		}
	}
}

// Check runs one connect sequence and publishes the resulting event.
func (e *Engine) Check(ctx context.Context) v1.ConnectionEvent {
	started := e.now()
	out, err := e.checker.Ensure(ctx)
	if ctx.Err() != nil {
		return v1.ConnectionEvent{Time: started, FailCount: e.failCount}
	}

	if errs.IsCode(err, errs.ErrLoginInProgress) {
		// Someone else is logging in right now; look again next tick.
		e.log.Debug("keepalive: login already in progress")
		return v1.ConnectionEvent{Time: started, FailCount: e.failCount}
	}
	if err == nil && !out.Success {
		err = out.LastErr
	}

	if out.Success {
		if e.failCount > 0 {
			e.log.Info("connection recovered", "after_failures", e.failCount)
		}
		e.failCount = 0
	} else {
		e.failCount++
		e.log.Debug("keepalive miss", "fail_count", e.failCount, "err", err)
		if e.failCount == OfflineThreshold {
			e.log.Warn("portal unreachable", "fail_count", e.failCount)
		}
	}

	ev := v1.ConnectionEvent{Time: started.UTC(), Online: out.Success, FailCount: e.failCount}
	if !out.Success && err != nil {
		ev.Err = err.Error()
	}
	e.persist(ev, out, started, err)
	e.emit(ev)
	return ev
}

func (e *Engine) persist(ev v1.ConnectionEvent, out portal.Outcome, started time.Time, err error) {
	if e.store == nil {
		return
	}
	if perr := e.store.PutConnectionEvent(ev); perr != nil {
		e.log.Warn("keepalive: state update failed", "err", perr)
	}
	// Only checks that actually sent a login are history.
	if out.Attempts == 0 && err == nil {
		return
	}
	result := v1.ResultFailure
	if out.Success {
		result = v1.ResultSuccess
	}
	rec := state.NewLoginRecord("watch", e.userID, out.Identity, started, e.now(), result, err)
	if _, perr := e.store.PutLoginRecord(rec); perr != nil {
		e.log.Warn("keepalive: state update failed", "err", perr)
	}
}

// emit sends a ConnectionEvent without blocking (drops if channel full).
func (e *Engine) emit(ev v1.ConnectionEvent) {
	select {
	case e.events <- ev:
	default:
		e.log.Debug("keepalive event channel full, dropping event")
	}
}
