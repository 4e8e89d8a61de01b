package portal

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/netutil"
)

// DefaultPortalHost is the Host header used when the portal URL has no host.
const DefaultPortalHost = "172.17.10.100"

// Browser fingerprint the portal expects. Requests without it are served the
// login page instead of the JSON interface.
const (
	headerUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.6533.100 Safari/537.36"
	headerAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	formContentType = "application/x-www-form-urlencoded; charset=UTF-8"
)

// logTimeLayout formats the timestamp line of request/response logs.
const logTimeLayout = "2006-01-02 15:04:05"

// logRule separates entries in the request/response log.
var logRule = strings.Repeat("=", 50)

// sensitiveFields are masked in request logs.
var sensitiveFields = map[string]bool{"userId": true, "password": true}

// RequestBuilder assembles the login POST for one portal.
type RequestBuilder struct {
	host string
}

// NewRequestBuilder returns a builder targeting portalURL.
func NewRequestBuilder(portalURL string) *RequestBuilder {
	host := netutil.HostOf(portalURL)
	if host == "" {
		host = DefaultPortalHost
	}
	return &RequestBuilder{host: host}
}

// BuildHeaders returns the fixed browser-like header set.
func (b *RequestBuilder) BuildHeaders() http.Header {
	h := make(http.Header)
	h.Set("Host", b.host)
	h.Set("User-Agent", headerUserAgent)
	h.Set("Accept", headerAccept)
	h.Set("Accept-Language", "zh-CN")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Content-Type", formContentType)
	return h
}

// BuildPayload derives the login form from creds and an encoded query string.
func (b *RequestBuilder) BuildPayload(creds v1.Credentials, queryString string) v1.LoginPayload {
	return v1.LoginPayload{
		Method:          "login",
		UserID:          creds.UserID,
		Password:        creds.Password,
		Service:         creds.Service,
		QueryString:     queryString,
		OperatorPwd:     "",
		OperatorUserID:  "",
		ValidCode:       "",
		PasswordEncrypt: "true",
	}
}

// Mask replaces every character of s with '*'.
func Mask(s string) string {
	return strings.Repeat("*", utf8.RuneCountInString(s))
}

// RequestLog renders the observer entry for an outgoing request. Credential
// fields are masked; they never appear in clear text.
func RequestLog(method, url string, header http.Header, payload v1.LoginPayload, at time.Time) string {
	lines := []string{
		"\n" + logRule,
		"Time: " + at.Format(logTimeLayout),
		"Method: " + method,
		"URL: " + url,
		"Headers:",
	}
	lines = append(lines, headerLines(header)...)
	lines = append(lines, "Data:")
	for _, f := range payload.Fields() {
		value := f.Value
		if sensitiveFields[f.Key] {
			value = Mask(value)
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", f.Key, value))
	}
	return strings.Join(lines, "\n")
}

// headerLines renders h one "  Key: value" line per value, keys sorted.
func headerLines(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		for _, v := range h[k] {
			out = append(out, fmt.Sprintf("  %s: %s", k, v))
		}
	}
	return out
}
