package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/errs"
)

const (
	successBody  = `{"result":"success","message":""}`
	rejectedBody = `{"result":"fail","message":"密码错误"}`
)

func TestLoginSuccessFirstAttempt(t *testing.T) {
	h := newHarness(validProvider(), alwaysRespond(200, successBody))

	ok, err := h.orch.Login(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	calls := h.transport.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testPortalURL, calls[0].URL)
	assert.Equal(t, 5*time.Second, calls[0].Timeout)
	assert.Equal(t, "login", calls[0].Form.Get("method"))
	assert.Equal(t, "20231234567", calls[0].Form.Get("userId"))
	assert.Equal(t, "s3cr3t!Pw", calls[0].Form.Get("password"))
	assert.Equal(t, EncodeQuery(v1.DeviceIdentity{IP: "10.1.2.3", MAC: "001A2B3C4D5E"}), calls[0].Form.Get("queryString"))
	assert.Equal(t, "172.17.10.100", calls[0].Header.Get("Host"))

	assert.Equal(t, 1, h.observer.Count(v1.CategoryRequest))
	assert.Equal(t, 1, h.observer.Count(v1.CategoryResponse))
	assert.Contains(t, h.observer.Messages(v1.CategoryProgram), "login succeeded")
	assert.Empty(t, h.sleeper.waits)
}

func TestLoginAlwaysTimingOut(t *testing.T) {
	h := newHarness(validProvider(), func(context.Context, int) (*RawResponse, error) {
		return nil, timeoutError()
	})

	out, err := h.orch.LoginSequence(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 3, out.Attempts)
	assert.True(t, errs.IsCode(out.LastErr, errs.ErrTimeout))

	assert.Len(t, h.transport.Calls(), 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeper.waits)
	assert.Equal(t, 3, h.observer.Count(v1.CategoryRequest))
	assert.Equal(t, 0, h.observer.Count(v1.CategoryResponse))

	program := h.observer.Messages(v1.CategoryProgram)
	assert.Contains(t, program, "waiting 1 seconds before retrying...")
	assert.Contains(t, program, "waiting 2 seconds before retrying...")
	assert.Equal(t, "login failed after 3 attempts", program[len(program)-1])
}

func TestLoginSucceedsOnThirdAttempt(t *testing.T) {
	h := newHarness(validProvider(), func(_ context.Context, n int) (*RawResponse, error) {
		if n < 2 {
			return nil, timeoutError()
		}
		return jsonResponse(200, successBody), nil
	})

	out, err := h.orch.LoginSequence(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.Attempts)
	assert.Nil(t, out.LastErr)
	assert.Len(t, h.sleeper.waits, 2)
}

func TestLoginMissingCredentials(t *testing.T) {
	cases := map[string]v1.Credentials{
		"empty user":     {UserID: "", Password: "pw"},
		"empty password": {UserID: "user", Password: ""},
		"both empty":     {},
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			p := validProvider()
			p.creds = creds
			h := newHarness(p, alwaysRespond(200, successBody))

			ok, err := h.orch.Login(context.Background(), nil)
			assert.False(t, ok)
			require.Error(t, err)
			assert.True(t, errs.IsCode(err, errs.ErrCredentialsMissing))
			assert.True(t, errs.IsConfig(err))
			assert.Empty(t, h.transport.Calls())
			assert.Equal(t, 1, h.observer.Count(v1.CategoryProgram))
		})
	}
}

func TestLoginOverrideIsCallScoped(t *testing.T) {
	h := newHarness(validProvider(), alwaysRespond(200, successBody))
	override := &v1.DeviceIdentity{IP: "192.168.1.50", MAC: "112233445566"}

	out, err := h.orch.LoginSequence(context.Background(), override)
	require.NoError(t, err)
	assert.Equal(t, *override, out.Identity)

	_, err = h.orch.LoginSequence(context.Background(), nil)
	require.NoError(t, err)

	calls := h.transport.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, EncodeQuery(*override), calls[0].Form.Get("queryString"))
	assert.Equal(t, EncodeQuery(v1.DeviceIdentity{IP: "10.1.2.3", MAC: "001A2B3C4D5E"}), calls[1].Form.Get("queryString"))
}

func TestLoginRejectionIsRetried(t *testing.T) {
	h := newHarness(validProvider(), alwaysRespond(200, rejectedBody))

	out, err := h.orch.LoginSequence(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 3, out.Attempts)
	assert.True(t, errs.IsCode(out.LastErr, errs.ErrRejected))
	assert.Contains(t, out.LastErr.Error(), "密码错误")
	assert.Equal(t, 3, h.observer.Count(v1.CategoryResponse))
	assert.Contains(t, h.observer.Messages(v1.CategoryProgram), "login failed: 密码错误")
}

func TestLoginRejectionWithoutMessage(t *testing.T) {
	h := newHarness(validProvider(), alwaysRespond(200, `{"result":"fail"}`))

	_, err := h.orch.LoginSequence(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, h.observer.Messages(v1.CategoryProgram), "login failed: unknown error")
}

func TestLoginMalformedAndUnexpectedStatus(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		code   errs.ErrorCode
	}{
		"not json":          {200, "<html>maintenance</html>", errs.ErrMalformed},
		"json array":        {200, `["success"]`, errs.ErrMalformed},
		"json null":         {200, `null`, errs.ErrMalformed},
		"server error":      {500, successBody, errs.ErrUnexpectedCode},
		"success on 302":    {302, successBody, errs.ErrUnexpectedCode},
		"non-string result": {200, `{"result":1}`, errs.ErrRejected},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(validProvider(), alwaysRespond(tc.status, tc.body))

			out, err := h.orch.LoginSequence(context.Background(), nil)
			require.NoError(t, err)
			assert.False(t, out.Success)
			assert.Equal(t, 3, out.Attempts)
			assert.True(t, errs.IsCode(out.LastErr, tc.code), "got %v", out.LastErr)
		})
	}
}

func TestLoginPanickingObserver(t *testing.T) {
	h := newHarness(validProvider(), alwaysRespond(200, successBody))
	cfg := NewConfig()
	cfg.Transport = h.transport
	cfg.Resolver = fixedResolver("10.1.2.3", nil)
	cfg.Observer = ObserverFunc(func(string, string) { panic("sink exploded") })
	orch := NewOrchestrator(validProvider(), cfg)

	var ok bool
	var err error
	assert.NotPanics(t, func() {
		ok, err = orch.Login(context.Background(), nil)
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginRejectsOverlappingCall(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	h := newHarness(validProvider(), func(context.Context, int) (*RawResponse, error) {
		close(entered)
		<-release
		return jsonResponse(200, successBody), nil
	})

	done := make(chan bool, 1)
	go func() {
		ok, _ := h.orch.Login(context.Background(), nil)
		done <- ok
	}()
	<-entered

	ok, err := h.orch.Login(context.Background(), nil)
	assert.False(t, ok)
	assert.True(t, errs.IsCode(err, errs.ErrLoginInProgress))

	_, err = h.orch.EnsureConnection(context.Background())
	assert.True(t, errs.IsCode(err, errs.ErrLoginInProgress))

	res := h.orch.Probe(context.Background())
	assert.Equal(t, v1.ProbeFailed, res.State)
	assert.True(t, errs.IsCode(res.Err, errs.ErrLoginInProgress))

	close(release)
	assert.True(t, <-done)
	assert.Len(t, h.transport.Calls(), 1)
}

func TestLoginCancelledDuringAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(validProvider(), func(context.Context, int) (*RawResponse, error) {
		cancel()
		return nil, errs.New(errs.ErrTransport, "portal.post", context.Canceled)
	})

	out, err := h.orch.LoginSequence(ctx, nil)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, h.sleeper.waits)
	assert.Contains(t, h.observer.Messages(v1.CategoryProgram), "login cancelled")
}

func TestLoginCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(validProvider(), func(context.Context, int) (*RawResponse, error) {
		return nil, timeoutError()
	})
	h.orch.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	out, err := h.orch.LoginSequence(ctx, nil)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 1, out.Attempts)
}

func TestNewOrchestratorDefaults(t *testing.T) {
	cfg := NewConfig()
	cfg.Observer = nil
	cfg.Policy = v1.RetryPolicy{}
	cfg.OnlineMarker = ""
	o := NewOrchestrator(validProvider(), cfg)

	assert.Equal(t, v1.DefaultRetryPolicy(), o.policy)
	assert.Equal(t, DefaultOnlineMarker, o.onlineMarker)
	assert.NotNil(t, o.observer)
}
