
package caption

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"accessiai/internal/models"
	"accessiai/pkg/logger"
)

const DefaultConcurrency = 4

type ImageFetcher interface {
	FetchImage(ctx context.Context, rawURL string) ([]byte, string, error)
}

// Annotator downloads alt-less images and attaches generated captions.
type Annotator struct {
	fetcher     ImageFetcher
	concurrency int
	maxDim      uint
	log         *logger.Logger
}

func NewAnnotator(f ImageFetcher, concurrency int, maxDim uint, log *logger.Logger) *Annotator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Annotator{fetcher: f, concurrency: concurrency, maxDim: maxDim, log: log}
}

// Annotate returns a copy of images with GeneratedAltText set where a caption
// was produced. Download and caption failures only drop that image's caption;
// an unavailable model fails the whole call.
func (a *Annotator) Annotate(ctx context.Context, c Captioner, pageURL string, images []models.ImageElement) ([]models.ImageElement, error) {
	out := make([]models.ImageElement, len(images))
	copy(out, images)
	if h, ok := c.(*Handle); c == nil || (ok && !h.Enabled()) {
		a.log.Infof("captioning disabled, skipping %d images", len(images))
		return out, nil
	}

	base, _ := url.Parse(pageURL)
	var (
		mu       sync.Mutex
		fatal    error
		captured int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range out {
		if out[i].HasAlt {
			continue
		}
		g.Go(func() error {
			img := &out[i]
			defer func() {
				if r := recover(); r != nil {
					img.GeneratedAltText = ""
					a.log.Warnf("image %s: caption dropped: panic: %v", img.ID, r)
				}
			}()
			text, err := a.describe(gctx, c, base, img.SourceURL)
			if err != nil {
				if errors.Is(err, ErrModelUnavailable) {
					mu.Lock()
					if fatal == nil {
						fatal = err
					}
					mu.Unlock()
					return nil
				}
				a.log.Warnf("image %s: %v", img.ID, err)
				return nil
			}
			img.GeneratedAltText = text
			mu.Lock()
			captured++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if fatal != nil {
		return out, fatal
	}
	a.log.Infof("captioned %d of %d images", captured, len(images))
	return out, nil
}

func (a *Annotator) describe(ctx context.Context, c Captioner, base *url.URL, src string) (string, error) {
	abs, err := resolve(base, src)
	if err != nil {
		return "", err
	}
	data, _, err := a.fetcher.FetchImage(ctx, abs)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", abs, err)
	}
	jpeg, err := Canonicalize(data, a.maxDim)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCaption, abs, err)
	}
	return c.Caption(ctx, jpeg)
}

func resolve(base *url.URL, src string) (string, error) {
	if src == "" {
		return "", errors.New("empty image url")
	}
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("bad image url %q: %w", src, err)
	}
	if !u.IsAbs() {
		if base == nil || !base.IsAbs() {
			return "", fmt.Errorf("relative image url %q without base", src)
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported image url scheme %q", u.Scheme)
	}
	return u.String(), nil
}
