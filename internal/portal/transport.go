package portal

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/bassosimone/errclass"

	"github.com/f9-o/eportal/pkg/errs"
)

// maxBodyBytes caps how much of a portal response is read.
const maxBodyBytes = 1 << 20

// Transport performs the single POST the engine needs.
//
// Implementations return an [*errs.PortalError] coded [errs.ErrTimeout] or
// [errs.ErrTransport] when no response could be obtained.
type Transport interface {
	Post(ctx context.Context, url string, header http.Header, body string, timeout time.Duration) (*RawResponse, error)
}

// HTTPTransport is the [Transport] backed by net/http.
type HTTPTransport struct {
	// Client performs the request. Per-call timeouts come from the context,
	// so Client.Timeout is left at zero.
	Client *http.Client

	// Classify labels network errors. Set by [NewHTTPTransport] to [errclass.New].
	Classify func(error) string
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns an [*HTTPTransport] with sensible defaults.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		Classify: errclass.New,
	}
}

// Post implements [Transport].
func (t *HTTPTransport) Post(ctx context.Context, url string, header http.Header, body string, timeout time.Duration) (*RawResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, errs.New(errs.ErrPortalURL, "portal.post", err).WithResource(url)
	}
	req.Header = header.Clone()
	// net/http sends req.Host, never a Host entry in the header map.
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
		req.Header.Del("Host")
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, t.wrap(err, url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, t.wrap(err, url)
	}
	decoded, err := decodeBody(resp.Header.Get("Content-Encoding"), data)
	if err != nil {
		// Keep the undecoded bytes; classification will call them malformed.
		decoded = data
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       decoded,
	}, nil
}

// wrap converts a net/http failure into a coded transport error.
func (t *HTTPTransport) wrap(err error, url string) error {
	code := errs.ErrTransport
	if isTimeout(err) {
		code = errs.ErrTimeout
	}
	pe := errs.New(code, "portal.post", err).WithResource(url)
	if t.Classify != nil {
		pe.WithClass(t.Classify(err))
	}
	return pe
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// decodeBody undoes a Content-Encoding. Setting Accept-Encoding by hand turns
// off the transparent gzip handling of net/http, so this is done here.
func decodeBody(encoding string, data []byte) ([]byte, error) {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return data, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
			defer zr.Close()
			r = zr
		} else {
			fr := flate.NewReader(bytes.NewReader(data))
			defer fr.Close()
			r = fr
		}
	case "br":
		r = brotli.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}
