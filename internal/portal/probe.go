package portal

import (
	"context"
	"net/http"
	"strings"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/errs"
)

// Probe sends one login-shaped POST with the probe timeout and classifies the
// device as online, needing login, or unknown. It never fails the caller:
// [v1.ProbeFailed] carries the reason in Err. A probe never runs alongside a
// login sequence on the same Orchestrator.
func (o *Orchestrator) Probe(ctx context.Context) v1.ProbeResult {
	if !o.inflight.TryLock() {
		return v1.ProbeResult{State: v1.ProbeFailed, Err: o.busy("portal.probe")}
	}
	defer o.inflight.Unlock()
	return o.probe(ctx)
}

func (o *Orchestrator) probe(ctx context.Context) v1.ProbeResult {
	url := o.provider.PortalURL()
	b := NewRequestBuilder(url)
	header := b.BuildHeaders()
	payload := b.BuildPayload(o.provider.Credentials(), EncodeQuery(o.resolver.Resolve(nil)))
	o.notify(v1.CategoryRequest, RequestLog(http.MethodPost, url, header, payload, o.now()))

	raw, err := o.transport.Post(ctx, url, header, payload.Encode(), o.policy.ProbeTimeout)
	if err != nil {
		o.program("probe request failed: " + err.Error())
		return v1.ProbeResult{State: v1.ProbeFailed, Err: err}
	}
	o.notify(v1.CategoryResponse, ResponseLog(raw, o.now()))

	if raw.StatusCode != http.StatusOK {
		return v1.ProbeResult{
			State: v1.ProbeFailed,
			Err:   errs.Newf(errs.ErrUnexpectedCode, "portal.probe", "portal answered HTTP %d", raw.StatusCode),
		}
	}
	resp, err := ParseResponse(raw)
	if err != nil {
		o.program("probe response has an invalid format")
		return v1.ProbeResult{State: v1.ProbeFailed, Err: err}
	}
	if strings.Contains(resp.Message, o.onlineMarker) {
		return v1.ProbeResult{State: v1.ProbeOnline, Message: resp.Message}
	}
	return v1.ProbeResult{State: v1.ProbeNeedsLogin, Message: resp.Message}
}
