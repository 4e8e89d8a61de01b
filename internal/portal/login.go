// Package portal implements the eportal login engine: identity resolution,
// request construction, the online probe and the retry loop.
//
// The engine never returns an error for an attempt that failed on the wire.
// Callers get a boolean plus the observer stream; only configuration errors
// and an overlapping call cross the API boundary as errors.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/errs"
)

// Outcome describes how a login or connect sequence ended.
type Outcome struct {
	Success       bool
	AlreadyOnline bool // set by Ensure when the probe found the device online
	Attempts      int  // login POSTs sent
	Identity      v1.DeviceIdentity
	LastErr       error // failure of the last attempt, nil on success
}

// Orchestrator drives login sequences against one portal.
//
// At most one sequence runs at a time; an overlapping call fails fast with
// [errs.ErrLoginInProgress] rather than opening a second portal session.
type Orchestrator struct {
	provider     Provider
	transport    Transport
	observer     Observer
	resolver     *Resolver
	policy       v1.RetryPolicy
	onlineMarker string
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time

	inflight sync.Mutex
}

// NewOrchestrator returns an [*Orchestrator] reading settings from provider.
// A nil cfg means [NewConfig].
func NewOrchestrator(provider Provider, cfg *Config) *Orchestrator {
	if cfg == nil {
		cfg = NewConfig()
	}
	o := &Orchestrator{
		provider:     provider,
		transport:    cfg.Transport,
		observer:     cfg.Observer,
		resolver:     cfg.Resolver,
		policy:       cfg.Policy,
		onlineMarker: cfg.OnlineMarker,
		sleep:        cfg.Sleep,
		now:          cfg.TimeNow,
	}
	if o.observer == nil {
		o.observer = NopObserver()
	}
	if o.policy.MaxAttempts < 1 {
		o.policy = v1.DefaultRetryPolicy()
	}
	if o.onlineMarker == "" {
		o.onlineMarker = DefaultOnlineMarker
	}
	return o
}

// Identity returns the identity a call with override would present.
func (o *Orchestrator) Identity(override *v1.DeviceIdentity) v1.DeviceIdentity {
	return o.resolver.Resolve(override)
}

// Login runs one login sequence and reports whether the portal accepted it.
// A nil override uses the host identity; a non-nil one applies to this call only.
func (o *Orchestrator) Login(ctx context.Context, override *v1.DeviceIdentity) (bool, error) {
	out, err := o.LoginSequence(ctx, override)
	return out.Success, err
}

// LoginSequence is [Orchestrator.Login] with the full [Outcome].
func (o *Orchestrator) LoginSequence(ctx context.Context, override *v1.DeviceIdentity) (Outcome, error) {
	if !o.inflight.TryLock() {
		return Outcome{}, o.busy("portal.login")
	}
	defer o.inflight.Unlock()
	return o.login(ctx, override)
}

// EnsureConnection probes the portal and logs in only when the device is not
// already online. A failed probe is treated as "needs login".
func (o *Orchestrator) EnsureConnection(ctx context.Context) (bool, error) {
	out, err := o.Ensure(ctx)
	return out.Success, err
}

// Ensure is [Orchestrator.EnsureConnection] with the full [Outcome].
func (o *Orchestrator) Ensure(ctx context.Context) (Outcome, error) {
	if !o.inflight.TryLock() {
		return Outcome{}, o.busy("portal.ensure")
	}
	defer o.inflight.Unlock()

	res := o.probe(ctx)
	switch res.State {
	case v1.ProbeOnline:
		o.program("device is already online")
		return Outcome{Success: true, AlreadyOnline: true}, nil
	case v1.ProbeFailed:
		o.program(fmt.Sprintf("probe failed (%v), assuming login is needed", res.Err))
	default:
		o.program(fmt.Sprintf("login needed: %s", orDefault(res.Message, "unknown state")))
	}
	return o.login(ctx, nil)
}

func (o *Orchestrator) login(ctx context.Context, override *v1.DeviceIdentity) (Outcome, error) {
	creds := o.provider.Credentials()
	if !creds.Complete() {
		o.program("error: user id and password must be configured before logging in")
		return Outcome{}, errs.New(errs.ErrCredentialsMissing, "portal.login",
			errors.New("user id or password is empty")).
			WithAdvice("run 'eportal init' or set EPORTAL_NETWORK_USER_ID and EPORTAL_NETWORK_PASSWORD")
	}

	url := o.provider.PortalURL()
	builder := NewRequestBuilder(url)

	var out Outcome
	for n := 0; n < o.policy.MaxAttempts; n++ {
		out.Attempts++
		out.Identity = o.resolver.Resolve(override)

		err := o.attempt(ctx, builder, url, creds, out.Identity, n)
		if err == nil {
			o.program("login succeeded")
			out.Success = true
			out.LastErr = nil
			return out, nil
		}
		out.LastErr = err
		if errs.IsConfig(err) {
			return out, err
		}
		if ctx.Err() != nil {
			o.program("login cancelled")
			return out, nil
		}

		if n < o.policy.MaxAttempts-1 {
			wait := o.policy.Backoff(n)
			o.program(fmt.Sprintf("waiting %d seconds before retrying...", int(wait/time.Second)))
			if err := o.sleep(ctx, wait); err != nil {
				o.program("login cancelled")
				return out, nil
			}
		}
	}

	o.program(fmt.Sprintf("login failed after %d attempts", out.Attempts))
	return out, nil
}

// attempt performs one POST and classifies it. A nil return means success.
func (o *Orchestrator) attempt(ctx context.Context, b *RequestBuilder, url string,
	creds v1.Credentials, id v1.DeviceIdentity, n int) error {
	header := b.BuildHeaders()
	payload := b.BuildPayload(creds, EncodeQuery(id))
	o.notify(v1.CategoryRequest, RequestLog(http.MethodPost, url, header, payload, o.now()))

	raw, err := o.transport.Post(ctx, url, header, payload.Encode(), o.policy.LoginTimeout)
	if err != nil {
		o.program(fmt.Sprintf("attempt %d failed: %v", n+1, err))
		return err
	}
	o.notify(v1.CategoryResponse, ResponseLog(raw, o.now()))
	o.program(fmt.Sprintf("attempt %d: %s", n+1, raw.Body))

	if raw.StatusCode != http.StatusOK {
		err := errs.Newf(errs.ErrUnexpectedCode, "portal.login", "portal answered HTTP %d", raw.StatusCode)
		o.program(fmt.Sprintf("attempt %d failed: %v", n+1, err))
		return err
	}
	resp, err := ParseResponse(raw)
	if err != nil {
		o.program(fmt.Sprintf("attempt %d failed: invalid response format", n+1))
		return err
	}
	if !resp.Success() {
		msg := orDefault(resp.Message, "unknown error")
		o.program("login failed: " + msg)
		return errs.Newf(errs.ErrRejected, "portal.login", "%s", msg)
	}
	return nil
}

func (o *Orchestrator) busy(op string) error {
	o.program("another login is already in progress")
	return errs.New(errs.ErrLoginInProgress, op, errors.New("a login sequence is already running"))
}

func (o *Orchestrator) notify(category, message string) {
	safeNotify(o.observer, category, message)
}

func (o *Orchestrator) program(message string) {
	o.notify(v1.CategoryProgram, message)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
