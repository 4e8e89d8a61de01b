package keepalive

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bassosimone/slogstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/internal/core/logger"
	"github.com/f9-o/eportal/internal/core/state"
	"github.com/f9-o/eportal/internal/portal"
	"github.com/f9-o/eportal/pkg/errs"
)

type ensureResult struct {
	out portal.Outcome
	err error
}

// scriptedChecker returns its results in order, repeating the last one.
type scriptedChecker struct {
	results []ensureResult
	calls   int
}

func (c *scriptedChecker) Ensure(ctx context.Context) (portal.Outcome, error) {
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	c.calls++
	return c.results[i].out, c.results[i].err
}

func newTestLogger() (*logger.Logger, *[]slog.Record) {
	var records []slog.Record
	return logger.New(&slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}), &records
}

func openDB(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), state.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var identity = v1.DeviceIdentity{IP: "10.0.0.5", MAC: "AABBCCDDEEFF"}

func TestCheckSequence(t *testing.T) {
	fail := errs.New(errs.ErrTimeout, "portal.post", context.DeadlineExceeded)
	checker := &scriptedChecker{results: []ensureResult{
		{out: portal.Outcome{Success: true, AlreadyOnline: true}},
		{out: portal.Outcome{Attempts: 3, Identity: identity, LastErr: fail}},
		{out: portal.Outcome{Attempts: 3, Identity: identity, LastErr: fail}},
		{out: portal.Outcome{Attempts: 3, Identity: identity, LastErr: fail}},
		{out: portal.Outcome{Success: true, Attempts: 1, Identity: identity}},
	}}
	db := openDB(t)
	log, records := newTestLogger()
	e := NewEngine(checker, db, log, time.Minute, "20231234567")

	ev := e.Check(context.Background())
	assert.True(t, ev.Online)
	assert.Zero(t, ev.FailCount)

	for i := 1; i <= 3; i++ {
		ev = e.Check(context.Background())
		assert.False(t, ev.Online)
		assert.Equal(t, i, ev.FailCount)
		assert.Contains(t, ev.Err, "ERR-NET-002")
	}

	ev = e.Check(context.Background())
	assert.True(t, ev.Online)
	assert.Zero(t, ev.FailCount)

	// Already-online check leaves no history; the other four do.
	recs, err := db.ListLoginRecords(0)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, v1.ResultSuccess, recs[0].Result)
	assert.Equal(t, "watch", recs[0].Op)
	assert.Equal(t, "20231234567", recs[0].UserID)
	assert.Equal(t, v1.ResultFailure, recs[1].Result)

	last, err := db.LastConnectionEvent()
	require.NoError(t, err)
	assert.True(t, last.Online)

	var warned, recovered bool
	for _, r := range *records {
		warned = warned || r.Message == "portal unreachable"
		recovered = recovered || r.Message == "connection recovered"
	}
	assert.True(t, warned)
	assert.True(t, recovered)

	assert.Len(t, e.Events(), 5)
}

func TestCheckConfigErrorCountsAsFailure(t *testing.T) {
	checker := &scriptedChecker{results: []ensureResult{
		{err: errs.New(errs.ErrCredentialsMissing, "portal.login", errors.New("empty"))},
	}}
	log, _ := newTestLogger()
	e := NewEngine(checker, nil, log, 0, "")
	assert.Equal(t, DefaultInterval, e.Interval())

	ev := e.Check(context.Background())
	assert.False(t, ev.Online)
	assert.Equal(t, 1, ev.FailCount)
	assert.Contains(t, ev.Err, "ERR-CFG-001")
}

func TestCheckLoginInProgressIsIgnored(t *testing.T) {
	checker := &scriptedChecker{results: []ensureResult{
		{err: errs.New(errs.ErrLoginInProgress, "portal.ensure", errors.New("busy"))},
	}}
	log, _ := newTestLogger()
	e := NewEngine(checker, nil, log, time.Minute, "")

	ev := e.Check(context.Background())
	assert.Zero(t, ev.FailCount)
	assert.Empty(t, e.Events())
}

func TestRunStopsOnCancel(t *testing.T) {
	checker := &scriptedChecker{results: []ensureResult{{out: portal.Outcome{Success: true, AlreadyOnline: true}}}}
	log, _ := newTestLogger()
	e := NewEngine(checker, nil, log, time.Hour, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case ev := <-e.Events():
		assert.True(t, ev.Online)
	case <-time.After(5 * time.Second):
		t.Fatal("no event from the initial check")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
