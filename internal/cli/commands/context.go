// Package commands provides the shared context type and all CLI subcommands.
package commands

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"golang.org/x/term"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/internal/core/config"
	"github.com/f9-o/eportal/internal/core/logger"
	"github.com/f9-o/eportal/internal/core/state"
	"github.com/f9-o/eportal/internal/portal"
	"github.com/f9-o/eportal/pkg/errs"
	"github.com/f9-o/eportal/pkg/pprint"
)

// contextKey is the key type for values stored in a command context.
type contextKey string

const runtimeContextKey contextKey = "eportal.runtime"

// GlobalFlags holds the parsed global flags for use by subcommands.
type GlobalFlags struct {
	Debug      bool
	Verbose    bool
	JSONOutput bool
}

// Runtime is the shared dependency bundle injected into each subcommand via context.
type Runtime struct {
	Config *config.Config
	Log    *logger.Logger
	State  *state.DB
	Flags  GlobalFlags

	// CapturePath is the packet capture file of this run, "" when disabled.
	CapturePath string
}

// NewContext returns a new context carrying the Runtime.
func NewContext(parent context.Context, rt *Runtime) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, runtimeContextKey, rt)
}

// FromContext extracts the Runtime from ctx. Panics if not present (programming error).
func FromContext(ctx context.Context) *Runtime {
	rt, ok := ctx.Value(runtimeContextKey).(*Runtime)
	if !ok || rt == nil {
		panic("eportal: Runtime not found in context, missing PersistentPreRunE?")
	}
	return rt
}

// Orchestrator builds a login engine from the loaded config. The logger
// always observes it; extra receives the stream as well when non-nil.
func (rt *Runtime) Orchestrator(extra portal.Observer) *portal.Orchestrator {
	cfg := portal.NewConfig()
	cfg.Observer = rt.Log
	if extra != nil {
		cfg.Observer = portal.MultiObserver(rt.Log, extra)
	}
	cfg.Policy = rt.Config.Policy()
	cfg.OnlineMarker = rt.Config.Network.OnlineMarker
	return portal.NewOrchestrator(rt.Config, cfg)
}

// Console returns the observer interactive commands print through. JSON
// output keeps stdout machine-readable, so it gets none.
func (rt *Runtime) Console() portal.Observer {
	if rt.Flags.JSONOutput {
		return nil
	}
	return &consoleObserver{verbose: rt.Flags.Verbose, now: time.Now}
}

// Record stores the history record of a finished login or connect run and
// mirrors it to the audit log. Nothing is stored for an overlapping call.
func (rt *Runtime) Record(op string, started time.Time, out portal.Outcome, err error) {
	if errs.IsCode(err, errs.ErrLoginInProgress) {
		return
	}
	result := v1.ResultFailure
	switch {
	case out.AlreadyOnline:
		result = v1.ResultOnline
	case out.Success:
		result = v1.ResultSuccess
	}
	if err == nil && !out.Success {
		err = out.LastErr
	}
	rec := state.NewLoginRecord(op, rt.Config.Network.UserID, out.Identity, started, time.Now(), result, err)
	rec, perr := rt.State.PutLoginRecord(rec)
	if perr != nil {
		rt.Log.Warn("history update failed", "err", perr)
	}
	rt.Log.Audit(logger.AuditFromRecord(rec, out.Attempts))
}

// Close releases the state database and the log files.
func (rt *Runtime) Close() error {
	var first error
	if rt.State != nil {
		first = rt.State.Close()
	}
	if rt.Log != nil {
		if err := rt.Log.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(pprint.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// interactive reports whether stdout is a terminal a spinner can draw on.
func interactive() bool {
	f, ok := pprint.Out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
