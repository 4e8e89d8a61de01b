// Package v1 defines the public data types shared across all eportal layers.
package v1

import (
	"net/url"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Status enumerations
// ─────────────────────────────────────────────────────────────────────────────

// ProbeState classifies the connectivity of this device as seen by the portal.
type ProbeState string

const (
	ProbeOnline     ProbeState = "online"
	ProbeNeedsLogin ProbeState = "needs_login"
	ProbeFailed     ProbeState = "failed"
)

// Observer categories.
const (
	CategoryRequest  = "request"
	CategoryResponse = "response"
	CategoryProgram  = "program"
)

// Login outcomes recorded in history.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultOnline  = "already_online"
)

// ─────────────────────────────────────────────────────────────────────────────
// Request side
// ─────────────────────────────────────────────────────────────────────────────

// Credentials are the portal account used for a login sequence.
type Credentials struct {
	UserID   string `json:"user_id"  mapstructure:"user_id"`
	Password string `json:"-"        mapstructure:"password"`
	Service  string `json:"service"  mapstructure:"service"`
}

// Complete reports whether both the account and the password are set.
func (c Credentials) Complete() bool {
	return c.UserID != "" && c.Password != ""
}

// DeviceIdentity is the IP/MAC pair presented to the portal.
type DeviceIdentity struct {
	IP  string `json:"ip"`
	MAC string `json:"mac"` // 12 uppercase hex chars, no separators
}

// Field is a single ordered form field.
type Field struct {
	Key   string
	Value string
}

// LoginPayload is the form body of a login POST.
type LoginPayload struct {
	Method          string
	UserID          string
	Password        string
	Service         string
	QueryString     string
	OperatorPwd     string
	OperatorUserID  string
	ValidCode       string
	PasswordEncrypt string
}

// Fields returns the wire fields in the order the portal's own page submits them.
func (p LoginPayload) Fields() []Field {
	return []Field{
		{"method", p.Method},
		{"userId", p.UserID},
		{"password", p.Password},
		{"service", p.Service},
		{"queryString", p.QueryString},
		{"operatorPwd", p.OperatorPwd},
		{"operatorUserId", p.OperatorUserID},
		{"validcode", p.ValidCode},
		{"passwordEncrypt", p.PasswordEncrypt},
	}
}

// Encode renders the payload as an application/x-www-form-urlencoded body.
// Unlike url.Values.Encode the field order is preserved.
func (p LoginPayload) Encode() string {
	var b strings.Builder
	for i, f := range p.Fields() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Response side
// ─────────────────────────────────────────────────────────────────────────────

// PortalResponse is the parsed result of one portal call.
type PortalResponse struct {
	StatusCode int    `json:"status_code"`
	Result     string `json:"result"`
	Message    string `json:"message"`
}

// Success reports whether the portal accepted the login.
func (r PortalResponse) Success() bool {
	return r.StatusCode == 200 && r.Result == "success"
}

// ProbeResult is the outcome of a connectivity probe.
type ProbeResult struct {
	State   ProbeState
	Message string // portal message, if any
	Err     error  // set when State is ProbeFailed
}

// RetryPolicy controls the login retry loop.
type RetryPolicy struct {
	MaxAttempts  int
	LoginTimeout time.Duration
	ProbeTimeout time.Duration
}

// DefaultRetryPolicy returns the policy the portal timeouts were tuned against.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		LoginTimeout: 5 * time.Second,
		ProbeTimeout: 3 * time.Second,
	}
}

// Backoff returns the wait after the zero-based attempt n. Linear: 1s, 2s, ...
func (p RetryPolicy) Backoff(n int) time.Duration {
	return time.Duration(n+1) * time.Second
}

// ─────────────────────────────────────────────────────────────────────────────
// Runtime state types (persisted in BoltDB)
// ─────────────────────────────────────────────────────────────────────────────

// LoginRecord is an immutable history record of one login or connect operation.
type LoginRecord struct {
	ID          string    `json:"id"`
	Op          string    `json:"op"` // login | connect | watch
	UserID      string    `json:"user_id"`
	IP          string    `json:"ip,omitempty"`
	MAC         string    `json:"mac,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Result      string    `json:"result"` // success | failure | already_online
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
}

// ConnectionEvent is emitted by the keepalive watcher on every check.
type ConnectionEvent struct {
	Time      time.Time `json:"time"`
	Online    bool      `json:"online"`
	FailCount int       `json:"fail_count"`
	Err       string    `json:"error,omitempty"`
}
