// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/pdiddy/torrify/pkg/types"
)

// BrowserFetcher renders pages in headless Chrome for sources that only
// produce their listing with JavaScript or sit behind a script challenge.
// Each Fetch starts and tears down its own browser.
type BrowserFetcher struct {
	// ExecPath overrides the Chrome binary lookup when non-empty.
	ExecPath string
	// WaitSelector is awaited before the DOM is captured (default "body").
	WaitSelector string
}

// Fetch navigates to url and returns the rendered outer HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string, header http.Header) (*Page, error) {
	ua := header.Get("User-Agent")
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(ua),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
	)
	if f.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	extra := network.Headers{}
	for _, k := range []string{"Accept", "Accept-Language", "Referer"} {
		if v := header.Get(k); v != "" {
			extra[k] = v
		}
	}

	wait := f.WaitSelector
	if wait == "" {
		wait = "body"
	}

	var dom string
	err := chromedp.Run(taskCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(extra),
		chromedp.Navigate(url),
		chromedp.WaitVisible(wait, chromedp.ByQuery),
		chromedp.OuterHTML("html", &dom, chromedp.ByQuery),
	)
	if err != nil {
		kind := types.KindTransport
		if ctx.Err() != nil {
			kind = types.KindTimeout
		}
		return nil, &Error{Kind: kind, Err: fmt.Errorf("browser fetch %s: %w", url, err)}
	}
	return &Page{URL: url, Status: http.StatusOK, Body: []byte(dom)}, nil
}
