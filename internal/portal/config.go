package portal

import (
	"context"
	"time"

	v1 "github.com/f9-o/eportal/api/v1"
)

// DefaultOnlineMarker is the text the portal puts in its message when the
// device is already authenticated ("already online").
const DefaultOnlineMarker = "已经在线"

// Provider supplies the configuration the engine reads on every call.
type Provider interface {
	Credentials() v1.Credentials
	PortalURL() string
	CustomIdentity() *v1.DeviceIdentity
}

// Config holds the collaborators of an [Orchestrator].
//
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// Transport sends the POSTs. Set by [NewConfig] to [NewHTTPTransport].
	Transport Transport

	// Observer receives the log stream. Set by [NewConfig] to [NopObserver].
	Observer Observer

	// Resolver determines the default identity. Set by [NewConfig] to [NewResolver].
	Resolver *Resolver

	// Policy is the retry policy. Set by [NewConfig] to [v1.DefaultRetryPolicy].
	Policy v1.RetryPolicy

	// OnlineMarker is the probe's "already online" substring.
	//
	// Set by [NewConfig] to [DefaultOnlineMarker].
	OnlineMarker string

	// Sleep waits between attempts and returns early with ctx.Err() when the
	// context is done. Set by [NewConfig] to a timer-based implementation.
	Sleep func(ctx context.Context, d time.Duration) error

	// TimeNow returns the current time. Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Transport:    NewHTTPTransport(),
		Observer:     NopObserver(),
		Resolver:     NewResolver(),
		Policy:       v1.DefaultRetryPolicy(),
		OnlineMarker: DefaultOnlineMarker,
		Sleep:        sleepContext,
		TimeNow:      time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
