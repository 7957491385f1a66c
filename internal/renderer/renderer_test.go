package renderer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

type fetchFunc func(ctx context.Context, rawURL string) (*types.FetchResult, error)

func (f fetchFunc) Fetch(ctx context.Context, rawURL string) (*types.FetchResult, error) {
	return f(ctx, rawURL)
}

func static(body string) fetchFunc {
	return func(ctx context.Context, rawURL string) (*types.FetchResult, error) {
		return &types.FetchResult{RequestedURL: rawURL, FinalURL: rawURL, StatusCode: 200, Body: []byte(body)}, nil
	}
}

func TestNewChromeRenderer(t *testing.T) {
	renderer := NewChromeRenderer("scopecrawl/1.0", 0)
	defer renderer.Close()

	if renderer.timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", renderer.timeout)
	}
}

func TestShouldRender(t *testing.T) {
	staticContent := "<html><body>" + strings.Repeat("Static content with lots of text ", 30) + "</body></html>"
	scriptContent := "<html><script>console.log('test')</script></html>"
	reactContent := "<html><div data-reactroot></div>" + strings.Repeat(" ", 600) + "</html>"

	tests := []struct {
		name         string
		html         string
		shouldRender bool
	}{
		{"short page", scriptContent, true},
		{"static page", staticContent, false},
		{"react root", reactContent, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRender(tt.html); got != tt.shouldRender {
				t.Errorf("Expected ShouldRender=%v, got %v", tt.shouldRender, got)
			}
		})
	}
}

func TestHybridKeepsStaticPages(t *testing.T) {
	body := "<html><body>" + strings.Repeat("Static content with lots of text ", 30) + "</body></html>"
	rendered := false
	h := NewHybrid(static(body), fetchFunc(func(ctx context.Context, rawURL string) (*types.FetchResult, error) {
		rendered = true
		return nil, nil
	}), nil)

	result, err := h.Fetch(context.Background(), "https://www.ics.uci.edu/")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rendered {
		t.Error("Expected static page not to be rendered")
	}
	if string(result.Body) != body {
		t.Error("Expected plain body")
	}
}

func TestHybridRendersScriptPages(t *testing.T) {
	h := NewHybrid(static(`<html><div id="root"></div></html>`), static("<html>rendered</html>"), nil)

	result, err := h.Fetch(context.Background(), "https://www.ics.uci.edu/app")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(result.Body) != "<html>rendered</html>" {
		t.Errorf("Expected rendered body, got %s", result.Body)
	}
}

func TestHybridFallsBackOnRenderError(t *testing.T) {
	h := NewHybrid(static(`<html><div id="app"></div></html>`), fetchFunc(func(ctx context.Context, rawURL string) (*types.FetchResult, error) {
		return nil, errors.New("chrome not found")
	}), nil)

	result, err := h.Fetch(context.Background(), "https://www.ics.uci.edu/app")
	if err != nil {
		t.Fatalf("Expected fallback, got %v", err)
	}
	if !strings.Contains(string(result.Body), `id="app"`) {
		t.Errorf("Expected plain body, got %s", result.Body)
	}
}

func TestHybridSkipsNonHTML(t *testing.T) {
	plain := fetchFunc(func(ctx context.Context, rawURL string) (*types.FetchResult, error) {
		return &types.FetchResult{RequestedURL: rawURL, StatusCode: 200, ContentType: "text/plain", Body: []byte("User-agent: *")}, nil
	})
	h := NewHybrid(plain, fetchFunc(func(ctx context.Context, rawURL string) (*types.FetchResult, error) {
		t.Error("Expected renderer not to be called")
		return nil, nil
	}), nil)

	if _, err := h.Fetch(context.Background(), "https://www.ics.uci.edu/robots.txt"); err != nil {
		t.Errorf("Fetch failed: %v", err)
	}
}

func TestHybridSkipsFailedResponses(t *testing.T) {
	plain := fetchFunc(func(ctx context.Context, rawURL string) (*types.FetchResult, error) {
		return &types.FetchResult{RequestedURL: rawURL, StatusCode: 404}, nil
	})
	h := NewHybrid(plain, fetchFunc(func(ctx context.Context, rawURL string) (*types.FetchResult, error) {
		t.Error("Expected renderer not to be called")
		return nil, nil
	}), nil)

	result, err := h.Fetch(context.Background(), "https://www.ics.uci.edu/missing")
	if err != nil || result.StatusCode != 404 {
		t.Errorf("Expected plain 404, got %v %v", result, err)
	}
}
