package portal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/errs"
)

const testPortalURL = "http://172.17.10.100/eportal/InterFace.do"

// staticProvider is a fixed [Provider].
type staticProvider struct {
	creds  v1.Credentials
	url    string
	custom *v1.DeviceIdentity
}

func (p staticProvider) Credentials() v1.Credentials         { return p.creds }
func (p staticProvider) PortalURL() string                   { return p.url }
func (p staticProvider) CustomIdentity() *v1.DeviceIdentity { return p.custom }

func validProvider() staticProvider {
	return staticProvider{
		creds: v1.Credentials{UserID: "20231234567", Password: "s3cr3t!Pw", Service: "教学区免费上网"},
		url:   testPortalURL,
	}
}

// postCall records one call to [funcTransport.Post].
type postCall struct {
	URL     string
	Header  http.Header
	Form    url.Values
	Timeout time.Duration
}

// funcTransport is a [Transport] driven by PostFunc that records every call.
type funcTransport struct {
	mu       sync.Mutex
	calls    []postCall
	PostFunc func(ctx context.Context, n int) (*RawResponse, error)
}

func (t *funcTransport) Post(ctx context.Context, u string, header http.Header, body string, timeout time.Duration) (*RawResponse, error) {
	form, _ := url.ParseQuery(body)
	t.mu.Lock()
	n := len(t.calls)
	t.calls = append(t.calls, postCall{URL: u, Header: header, Form: form, Timeout: timeout})
	t.mu.Unlock()
	return t.PostFunc(ctx, n)
}

func (t *funcTransport) Calls() []postCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]postCall(nil), t.calls...)
}

func jsonResponse(status int, body string) *RawResponse {
	return &RawResponse{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json;charset=UTF-8"}},
		Body:       []byte(body),
	}
}

func alwaysRespond(status int, body string) func(context.Context, int) (*RawResponse, error) {
	return func(context.Context, int) (*RawResponse, error) {
		return jsonResponse(status, body), nil
	}
}

func timeoutError() error {
	return errs.New(errs.ErrTimeout, "portal.post", context.DeadlineExceeded).WithClass("ETIMEDOUT")
}

// entry is one captured observer notification.
type entry struct {
	Category string
	Message  string
}

// capturingObserver stores every notification.
type capturingObserver struct {
	mu      sync.Mutex
	entries []entry
}

func (c *capturingObserver) Notify(category, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry{category, message})
}

func (c *capturingObserver) Count(category string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.Category == category {
			n++
		}
	}
	return n
}

func (c *capturingObserver) Messages(category string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.entries {
		if e.Category == category {
			out = append(out, e.Message)
		}
	}
	return out
}

// recordingSleep records requested waits without sleeping.
type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

// fixedResolver returns a [*Resolver] that always resolves to ip/mac.
func fixedResolver(ip string, mac net.HardwareAddr) *Resolver {
	return &Resolver{
		Hostname: func() (string, error) { return "testhost", nil },
		LookupIP: func(string) ([]net.IP, error) { return []net.IP{net.ParseIP(ip)}, nil },
		Interfaces: func() ([]net.Interface, error) {
			return []net.Interface{{Name: "eth0", Flags: net.FlagUp, HardwareAddr: mac}}, nil
		},
	}
}

// brokenResolver fails every host lookup.
func brokenResolver() *Resolver {
	fail := errors.New("lookup failed")
	return &Resolver{
		Hostname:   func() (string, error) { return "", fail },
		LookupIP:   func(string) ([]net.IP, error) { return nil, fail },
		Interfaces: func() ([]net.Interface, error) { return nil, fail },
	}
}

type harness struct {
	orch      *Orchestrator
	transport *funcTransport
	observer  *capturingObserver
	sleeper   *recordingSleep
}

func newHarness(p Provider, post func(context.Context, int) (*RawResponse, error)) *harness {
	h := &harness{
		transport: &funcTransport{PostFunc: post},
		observer:  &capturingObserver{},
		sleeper:   &recordingSleep{},
	}
	cfg := NewConfig()
	cfg.Transport = h.transport
	cfg.Observer = h.observer
	cfg.Resolver = fixedResolver("10.1.2.3", net.HardwareAddr{0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e})
	cfg.Sleep = h.sleeper.Sleep
	cfg.TimeNow = func() time.Time { return time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC) }
	h.orch = NewOrchestrator(p, cfg)
	return h
}
