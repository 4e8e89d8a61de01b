package portal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/errs"
)

// RawResponse is what a [Transport] hands back for one POST.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte // already decoded from any Content-Encoding
}

// ParseResponse decodes the portal's JSON body into a [v1.PortalResponse].
//
// Only a JSON object is accepted; anything else yields an [errs.ErrMalformed]
// error. Non-string result/message values are treated as absent.
func ParseResponse(raw *RawResponse) (v1.PortalResponse, error) {
	resp := v1.PortalResponse{StatusCode: raw.StatusCode}

	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw.Body))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return resp, errs.New(errs.ErrMalformed, "portal.parse", err)
	}
	if obj == nil {
		return resp, errs.New(errs.ErrMalformed, "portal.parse", errors.New("body is JSON null"))
	}
	resp.Result, _ = obj["result"].(string)
	resp.Message, _ = obj["message"].(string)
	return resp, nil
}

// ResponseLog renders the observer entry for a received response: status,
// headers and body, the latter pretty-printed when it is JSON.
func ResponseLog(raw *RawResponse, at time.Time) string {
	lines := []string{
		"\n" + logRule,
		"Time: " + at.Format(logTimeLayout),
		fmt.Sprintf("Status Code: %d", raw.StatusCode),
		"Headers:",
	}
	lines = append(lines, headerLines(raw.Header)...)
	if pretty, ok := prettyJSON(raw.Body); ok {
		lines = append(lines, "Body (JSON):", pretty)
	} else {
		lines = append(lines, "Body:", string(raw.Body))
	}
	return strings.Join(lines, "\n")
}

// prettyJSON re-indents body with two spaces. Escaped non-ASCII text is
// rendered as UTF-8 so portal messages stay readable.
func prettyJSON(body []byte) (string, bool) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}
