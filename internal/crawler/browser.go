
package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher returns the DOM after client-side scripts ran, serialized
// back to markup. Chrome is launched on first use and reused until Close.
type BrowserFetcher struct {
	timeout time.Duration

	mu      sync.Mutex
	browser *rod.Browser
	l       *launcher.Launcher
}

func NewBrowserFetcher(timeout time.Duration) *BrowserFetcher {
	return &BrowserFetcher{timeout: timeout}
}

func (b *BrowserFetcher) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}
	l := launcher.New().Headless(true)
	if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	b.browser, b.l = browser, l
	return browser, nil
}

func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, string, time.Duration, error) {
	start := time.Now()
	browser, err := b.connect()
	if err != nil {
		return nil, "", "", 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return nil, "", "", 0, classify(err, b.timeout)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return nil, "", "", 0, classify(err, b.timeout)
	}
	markup, err := page.HTML()
	if err != nil {
		return nil, "", "", 0, classify(err, b.timeout)
	}
	finalURL := rawURL
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}
	return io.NopCloser(strings.NewReader(markup)), finalURL, "text/html; charset=utf-8", time.Since(start), nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.l.Kill()
	b.browser, b.l = nil, nil
	return err
}
