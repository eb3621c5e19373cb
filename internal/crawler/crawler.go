
package crawler

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	PageTimeout  = 5 * time.Second
	ImageTimeout = 10 * time.Second
	UserAgent    = "Mozilla/5.0 (compatible; accessiai/1.0)"
)

var (
	ErrInvalidURL = errors.New("invalid url")
	ErrTimeout    = errors.New("request timed out")
	ErrConnection = errors.New("connection error")
	ErrNotHTML    = errors.New("non-html content")
)

type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

type HTTPClient struct {
	client       *http.Client
	sizeCap      int64
	userAgent    string
	pageTimeout  time.Duration
	imageTimeout time.Duration
}

// NewHTTPClient builds a client whose page fetches give up after timeout.
// Image downloads always use ImageTimeout.
func NewHTTPClient(timeout, dialTimeout time.Duration, sizeCap int64) *HTTPClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPClient{
		client:       &http.Client{Transport: transport},
		sizeCap:      sizeCap,
		userAgent:    UserAgent,
		pageTimeout:  timeout,
		imageTimeout: ImageTimeout,
	}
}

// Fetch downloads an HTML page. The returned body must be closed; closing it
// also releases the request deadline.
func (h *HTTPClient) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, string, time.Duration, error) {
	start := time.Now()
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, "", "", 0, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	ctx, cancel := context.WithTimeout(ctx, h.pageTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, "", "", 0, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		cancel()
		return nil, "", "", 0, classify(err, h.pageTimeout)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		resp.Body.Close()
		cancel()
		return nil, "", "", 0, &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.Contains(mediaType, "text/html") && !strings.Contains(mediaType, "application/xhtml+xml") && mediaType != "" {
		// still allow if empty (some servers omit), otherwise reject non-html
		resp.Body.Close()
		cancel()
		return nil, "", "", 0, fmt.Errorf("%w: %s", ErrNotHTML, mediaType)
	}

	var body io.ReadCloser = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			cancel()
			return nil, "", "", 0, err
		}
		body = gz
	}

	finalURL := resp.Request.URL.String()
	elapsed := time.Since(start)
	return &limitedBody{
		Reader: io.LimitReader(body, h.sizeCap),
		close: func() error {
			defer cancel()
			if body != resp.Body {
				body.Close()
			}
			return resp.Body.Close()
		},
	}, finalURL, contentType, elapsed, nil
}

// FetchImage downloads an image body of at most sizeCap bytes.
func (h *HTTPClient) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.imageTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", classify(err, h.imageTimeout)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.sizeCap))
	if err != nil {
		return nil, "", classify(err, h.imageTimeout)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func classify(err error, timeout time.Duration) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return err
}

type limitedBody struct {
	io.Reader
	close func() error
}

func (b *limitedBody) Close() error { return b.close() }
