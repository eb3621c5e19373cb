
package caption

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MaxAltLength is the longest caption kept before truncation.
const MaxAltLength = 125

var (
	ErrCaption          = errors.New("caption failed")
	ErrModelUnavailable = errors.New("caption model unavailable")
	ErrReleased         = errors.New("caption handle released")
)

// Captioner describes a canonical JPEG image.
type Captioner interface {
	Caption(ctx context.Context, jpeg []byte) (string, error)
}

// Model is a loaded captioning backend. A Model that also implements
// io.Closer is closed when its Handle is released.
type Model interface {
	Describe(ctx context.Context, jpeg []byte) (string, error)
}

type Loader func(ctx context.Context) (Model, error)

// Handle owns one lazily loaded Model for the duration of an analysis run.
// Calls to Caption are serialized so at most one inference is in flight.
type Handle struct {
	load Loader

	mu      sync.Mutex
	model   Model
	loadErr error
	loaded  bool
	closed  bool
	release sync.Once
}

// NewHandle returns a handle that calls load on first use. A nil load
// yields a handle whose Enabled reports false.
func NewHandle(load Loader) *Handle {
	return &Handle{load: load}
}

func (h *Handle) Enabled() bool { return h != nil && h.load != nil }

func (h *Handle) Caption(ctx context.Context, jpeg []byte) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "", ErrReleased
	}
	if h.load == nil {
		return "", fmt.Errorf("%w: captioning disabled", ErrModelUnavailable)
	}
	if !h.loaded {
		h.loaded = true
		m, err := h.load(ctx)
		if err != nil {
			h.loadErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		h.model = m
	}
	if h.loadErr != nil {
		return "", h.loadErr
	}
	text, err := h.model.Describe(ctx, jpeg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaption, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty caption", ErrCaption)
	}
	return Truncate(text, MaxAltLength), nil
}

// Release drops the model. Only the first call has any effect.
func (h *Handle) Release() error {
	var err error
	h.release.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true
		if c, ok := h.model.(io.Closer); ok {
			err = c.Close()
		}
		h.model = nil
	})
	return err
}

// Truncate cuts s to n runes at the last word boundary and appends "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndexByte(cut, ' '); i >= 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
