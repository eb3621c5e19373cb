
package caption

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"accessiai/internal/models"
)

type fakeModel struct {
	text     string
	err      error
	inflight atomic.Int32
	overlap  atomic.Bool
	calls    atomic.Int32
	closed   atomic.Int32
}

func (m *fakeModel) Describe(ctx context.Context, jpeg []byte) (string, error) {
	m.calls.Add(1)
	if m.inflight.Add(1) > 1 {
		m.overlap.Store(true)
	}
	time.Sleep(5 * time.Millisecond)
	m.inflight.Add(-1)
	return m.text, m.err
}

func (m *fakeModel) Close() error {
	m.closed.Add(1)
	return nil
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short caption", 125); got != "short caption" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("word ", 40)
	got := Truncate(long, 125)
	if !strings.HasSuffix(got, "...") || len(got) > 128 {
		t.Fatalf("bad truncation %q (%d)", got, len(got))
	}
	if strings.HasSuffix(strings.TrimSuffix(got, "..."), " ") {
		t.Fatalf("truncation should cut at a word boundary: %q", got)
	}
	if got := Truncate(strings.Repeat("x", 130), 125); got != strings.Repeat("x", 125)+"..." {
		t.Fatalf("no-space truncation: %q", got)
	}
}

func TestHandleLoadsLazilyOnce(t *testing.T) {
	m := &fakeModel{text: " A red apple "}
	var loads atomic.Int32
	h := NewHandle(func(context.Context) (Model, error) {
		loads.Add(1)
		return m, nil
	})
	if loads.Load() != 0 {
		t.Fatal("model loaded before first use")
	}
	for i := 0; i < 3; i++ {
		got, err := h.Caption(context.Background(), nil)
		if err != nil || got != "A red apple" {
			t.Fatalf("caption: %q %v", got, err)
		}
	}
	if loads.Load() != 1 {
		t.Fatalf("want 1 load, got %d", loads.Load())
	}
}

func TestHandleSerializesInference(t *testing.T) {
	m := &fakeModel{text: "x"}
	h := NewHandle(func(context.Context) (Model, error) { return m, nil })
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.Caption(context.Background(), nil)
		}()
	}
	wg.Wait()
	if m.overlap.Load() {
		t.Fatal("concurrent inference on shared handle")
	}
	if m.calls.Load() != 8 {
		t.Fatalf("want 8 calls, got %d", m.calls.Load())
	}
}

func TestHandleReleaseIdempotent(t *testing.T) {
	m := &fakeModel{text: "x"}
	h := NewHandle(func(context.Context) (Model, error) { return m, nil })
	_, _ = h.Caption(context.Background(), nil)
	for i := 0; i < 3; i++ {
		if err := h.Release(); err != nil {
			t.Fatalf("release: %v", err)
		}
	}
	if m.closed.Load() != 1 {
		t.Fatalf("want model closed once, got %d", m.closed.Load())
	}
	if _, err := h.Caption(context.Background(), nil); !errors.Is(err, ErrReleased) {
		t.Fatalf("want ErrReleased, got %v", err)
	}
}

func TestHandleLoadFailure(t *testing.T) {
	h := NewHandle(func(context.Context) (Model, error) { return nil, errors.New("no key") })
	for i := 0; i < 2; i++ {
		if _, err := h.Caption(context.Background(), nil); !errors.Is(err, ErrModelUnavailable) {
			t.Fatalf("want ErrModelUnavailable, got %v", err)
		}
	}
	if err := h.Release(); err != nil {
		t.Fatalf("release after failed load: %v", err)
	}
}

func TestHandleCaptionErrors(t *testing.T) {
	h := NewHandle(func(context.Context) (Model, error) { return &fakeModel{err: errors.New("boom")}, nil })
	if _, err := h.Caption(context.Background(), nil); !errors.Is(err, ErrCaption) {
		t.Fatalf("want ErrCaption, got %v", err)
	}
	h = NewHandle(func(context.Context) (Model, error) { return &fakeModel{text: "  "}, nil })
	if _, err := h.Caption(context.Background(), nil); !errors.Is(err, ErrCaption) {
		t.Fatalf("empty caption: want ErrCaption, got %v", err)
	}
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCanonicalize(t *testing.T) {
	data := pngBytes(t, 400, 200, color.NRGBA{0, 0, 0, 0})
	out, err := Canonicalize(data, 100)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("unexpected size %v", b)
	}
	r, g, bl, _ := img.At(10, 10).RGBA()
	if r>>8 < 240 || g>>8 < 240 || bl>>8 < 240 {
		t.Fatalf("transparent pixels should flatten to white, got %d %d %d", r>>8, g>>8, bl>>8)
	}
	if _, err := Canonicalize([]byte("not an image"), 100); err == nil {
		t.Fatal("expected decode error")
	}
}

type fakeFetcher struct {
	mu   sync.Mutex
	urls []string
	data map[string][]byte
}

func (f *fakeFetcher) FetchImage(_ context.Context, u string) ([]byte, string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, u)
	f.mu.Unlock()
	d, ok := f.data[u]
	if !ok {
		return nil, "", errors.New("not found")
	}
	return d, "image/png", nil
}

func TestAnnotate(t *testing.T) {
	img := pngBytes(t, 8, 8, color.RGBA{255, 0, 0, 255})
	f := &fakeFetcher{data: map[string][]byte{
		"https://example.com/img/a.png": img,
		"https://cdn.example.com/b.png": img,
	}}
	images := []models.ImageElement{
		{ID: "a", SourceURL: "/img/a.png"},
		{ID: "b", SourceURL: "https://cdn.example.com/b.png", HasAlt: true, CurrentAlt: "B"},
		{ID: "c", SourceURL: "missing.png"},
		{ID: "d", SourceURL: ""},
	}
	h := NewHandle(func(context.Context) (Model, error) { return &fakeModel{text: "A red square"}, nil })
	defer h.Release()

	out, err := NewAnnotator(f, 2, 64, nil).Annotate(context.Background(), h, "https://example.com/page/index.html", images)
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if out[0].GeneratedAltText != "A red square" {
		t.Fatalf("image a not captioned: %+v", out[0])
	}
	for _, i := range []int{1, 2, 3} {
		if out[i].GeneratedAltText != "" {
			t.Fatalf("image %s should have no caption: %+v", out[i].ID, out[i])
		}
	}
	if images[0].GeneratedAltText != "" {
		t.Fatal("input slice must not be modified")
	}
	for _, u := range f.urls {
		if u == "https://cdn.example.com/b.png" {
			t.Fatal("image with alt text should not be downloaded")
		}
	}
}

type panickyModel struct {
	calls  atomic.Int32
	closed atomic.Int32
}

func (m *panickyModel) Describe(context.Context, []byte) (string, error) {
	if m.calls.Add(1) == 1 {
		panic("decoder exploded")
	}
	return "A white square", nil
}

func (m *panickyModel) Close() error {
	m.closed.Add(1)
	return nil
}

func TestAnnotateRecoversWorkerPanic(t *testing.T) {
	img := pngBytes(t, 4, 4, color.White)
	f := &fakeFetcher{data: map[string][]byte{
		"https://example.com/a.png": img,
		"https://example.com/b.png": img,
	}}
	m := &panickyModel{}
	h := NewHandle(func(context.Context) (Model, error) { return m, nil })

	images := []models.ImageElement{{ID: "a", SourceURL: "a.png"}, {ID: "b", SourceURL: "b.png"}}
	out, err := NewAnnotator(f, 1, 0, nil).Annotate(context.Background(), h, "https://example.com/", images)
	if err != nil {
		t.Fatalf("a worker panic should only drop that caption: %v", err)
	}
	if out[0].GeneratedAltText != "" {
		t.Fatalf("panicked image should have no caption: %+v", out[0])
	}
	if out[1].GeneratedAltText != "A white square" {
		t.Fatalf("remaining images should still be captioned: %+v", out[1])
	}
	if err := h.Release(); err != nil || m.closed.Load() != 1 {
		t.Fatalf("model should be released once after a panic: %v, closed=%d", err, m.closed.Load())
	}
}

func TestAnnotateModelUnavailable(t *testing.T) {
	img := pngBytes(t, 4, 4, color.White)
	f := &fakeFetcher{data: map[string][]byte{"https://example.com/a.png": img}}
	h := NewHandle(func(context.Context) (Model, error) { return nil, errors.New("no key") })
	defer h.Release()

	_, err := NewAnnotator(f, 1, 0, nil).Annotate(context.Background(), h, "https://example.com/", []models.ImageElement{{ID: "a", SourceURL: "a.png"}})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("want ErrModelUnavailable, got %v", err)
	}
}

func TestAnnotateDisabled(t *testing.T) {
	f := &fakeFetcher{}
	out, err := NewAnnotator(f, 1, 0, nil).Annotate(context.Background(), NewHandle(nil), "https://example.com/", []models.ImageElement{{ID: "a", SourceURL: "a.png"}})
	if err != nil || len(out) != 1 || len(f.urls) != 0 {
		t.Fatalf("disabled handle should skip downloads: %v %v", err, f.urls)
	}
}

func TestNewLoader(t *testing.T) {
	if l, err := NewLoader("none", ""); err != nil || l != nil {
		t.Fatalf("none: %v", err)
	}
	if l, err := NewLoader("claude", ""); err != nil || l == nil {
		t.Fatalf("claude: %v", err)
	}
	if _, err := NewLoader("bard", ""); err == nil {
		t.Fatal("expected unknown provider error")
	}
}
