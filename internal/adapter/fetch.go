// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/torrify/internal/httputil"
	"github.com/pdiddy/torrify/pkg/types"
)

// Page is a fetched document.
type Page struct {
	URL    string
	Status int
	Body   []byte
}

// Fetcher retrieves one document. HTTPFetcher and BrowserFetcher are
// interchangeable implementations.
type Fetcher interface {
	Fetch(ctx context.Context, url string, header http.Header) (*Page, error)
}

const (
	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 8 << 20
	maxRedirects = 3

	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptJSON = "application/json"
	acceptRSS  = "application/rss+xml,application/xml;q=0.9,*/*;q=0.8"
)

// HTTPFetcher fetches documents with a plain HTTP client.
type HTTPFetcher struct {
	Client     *http.Client
	MaxRetries int
}

// NewHTTPFetcher returns a fetcher whose client follows at most three
// redirects and gives up after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		MaxRetries: 2,
	}
}

// Fetch issues a GET and returns the body of a 2xx response.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, header http.Header) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Errorf(types.KindTransport, "creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, f.MaxRetries)
	if err != nil {
		return nil, &Error{Kind: KindOf(err), Err: fmt.Errorf("GET %s: %w", url, err)}
	}
	status := resp.StatusCode
	body, err := httputil.ReadBody(resp, maxBodyBytes)
	if err != nil {
		kind := types.KindTransport
		var se *httputil.StatusError
		if errors.As(err, &se) && (se.Code == http.StatusForbidden || se.Code == http.StatusServiceUnavailable) {
			kind = types.KindBlocked
		}
		return nil, &Error{Kind: kind, Err: fmt.Errorf("GET %s: %w", url, err)}
	}
	return &Page{URL: url, Status: status, Body: body}, nil
}

// Headers returns the request headers for this adapter with the given
// Accept value.
func (b *Behavior) Headers(accept string) http.Header {
	ua := b.cfg.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("Accept", accept)
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	if b.cfg.BaseURL != "" {
		h.Set("Referer", b.cfg.BaseURL+"/")
	}
	return h
}

// Fetch waits for the rate limiter and then fetches url.
func (b *Behavior) Fetch(ctx context.Context, url, accept string) (*Page, error) {
	if b.fetcher == nil {
		return nil, Errorf(types.KindTransport, "no fetcher configured")
	}
	if err := b.Wait(ctx); err != nil {
		return nil, err
	}
	start := b.now()
	page, err := b.fetcher.Fetch(ctx, url, b.Headers(accept))
	b.log.Debug("fetched",
		zap.String("url", url),
		zap.Duration("elapsed", b.now().Sub(start)),
		zap.Bool("ok", err == nil))
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			ae.Source = b.Name()
			return nil, ae
		}
		return nil, &Error{Kind: KindOf(err), Source: b.Name(), Err: err}
	}
	return page, nil
}

// blockMarkers are lowercase fragments of interstitial, captcha, ISP block
// and maintenance pages.
var blockMarkers = [][]byte{
	[]byte("checking your browser"),
	[]byte("cf-browser-verification"),
	[]byte("cf-challenge"),
	[]byte("just a moment..."),
	[]byte("attention required! | cloudflare"),
	[]byte("access denied"),
	[]byte("this site has been blocked"),
	[]byte("website is blocked"),
	[]byte("domain is suspended"),
	[]byte("account suspended"),
	[]byte("site is under maintenance"),
	[]byte("airtel.in/dot"),
}

// LooksBlocked reports whether body is shorter than minLen or carries a
// known interstitial marker.
func LooksBlocked(body []byte, minLen int) bool {
	if len(body) < minLen {
		return true
	}
	lower := bytes.ToLower(body)
	for _, m := range blockMarkers {
		if bytes.Contains(lower, m) {
			return true
		}
	}
	return false
}
