// Package renderer fetches pages that need JavaScript through headless Chrome.
package renderer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

// DefaultSettleTime is how long scripts get to run after the body is ready.
const DefaultSettleTime = 2 * time.Second

// Fetcher fetches a URL. Both the plain HTTP fetcher and ChromeRenderer
// satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*types.FetchResult, error)
}

// ChromeRenderer renders pages with headless Chrome
type ChromeRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	settle      time.Duration
}

// NewChromeRenderer creates a renderer. Chrome itself starts lazily on the
// first render.
func NewChromeRenderer(userAgent string, timeout time.Duration) *ChromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ChromeRenderer{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		timeout:     timeout,
		settle:      DefaultSettleTime,
	}
}

// Fetch navigates to rawURL and returns the rendered document.
func (cr *ChromeRenderer) Fetch(ctx context.Context, rawURL string) (*types.FetchResult, error) {
	tabCtx, cancel := chromedp.NewContext(cr.allocCtx)
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, cr.timeout)
	defer timeoutCancel()

	// Stop the tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(rawURL))
	if err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	result := &types.FetchResult{
		RequestedURL: rawURL,
		FinalURL:     rawURL,
	}
	if resp != nil {
		result.StatusCode = int(resp.Status)
		result.ContentType = contentType(resp)
		if resp.URL != "" {
			result.FinalURL = resp.URL
		}
	}

	if result.StatusCode < 200 || result.StatusCode > 399 {
		return result, nil
	}

	var htmlContent string
	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body"),
		chromedp.Sleep(cr.settle),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	result.Body = []byte(htmlContent)

	return result, nil
}

func contentType(resp *network.Response) string {
	if ct, ok := resp.Headers["Content-Type"].(string); ok {
		return ct
	}
	if ct, ok := resp.Headers["content-type"].(string); ok {
		return ct
	}
	return resp.MimeType
}

// Close closes the renderer
func (cr *ChromeRenderer) Close() {
	if cr.allocCancel != nil {
		cr.allocCancel()
	}
}

// ShouldRender determines if a page needs JS rendering
func ShouldRender(htmlContent string) bool {
	if len(htmlContent) < 500 {
		return true
	}

	jsIndicators := []string{
		"<div id=\"root\"></div>",
		"<div id=\"app\"></div>",
		"<noscript>You need to enable JavaScript",
		"JavaScript is required",
		"Please enable JavaScript",
		"__NEXT_DATA__",
		"ng-app",
		"v-app",
		"data-reactroot",
	}

	lowerContent := strings.ToLower(htmlContent)
	for _, indicator := range jsIndicators {
		if strings.Contains(lowerContent, strings.ToLower(indicator)) {
			return true
		}
	}

	return false
}

func isHTML(contentType string) bool {
	return contentType == "" || strings.Contains(strings.ToLower(contentType), "html")
}

// Hybrid fetches with a plain fetcher and falls back to a renderer for
// successful pages that look script-driven.
type Hybrid struct {
	plain    Fetcher
	renderer Fetcher
	logger   *logrus.Entry
}

// NewHybrid combines plain and renderer. A nil logger discards diagnostics.
func NewHybrid(plain, renderer Fetcher, logger *logrus.Entry) *Hybrid {
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &Hybrid{plain: plain, renderer: renderer, logger: logger}
}

// Fetch returns the plain result unless it is an HTML page that needs
// rendering. A failed render falls back to the plain result.
func (h *Hybrid) Fetch(ctx context.Context, rawURL string) (*types.FetchResult, error) {
	result, err := h.plain.Fetch(ctx, rawURL)
	if err != nil || !result.HasBody() || !isHTML(result.ContentType) || !ShouldRender(string(result.Body)) {
		return result, err
	}

	rendered, err := h.renderer.Fetch(ctx, rawURL)
	if err != nil {
		h.logger.WithField("url", rawURL).WithError(err).Warn("render failed, using plain response")
		return result, nil
	}

	return rendered, nil
}
