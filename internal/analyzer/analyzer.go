
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"accessiai/internal/aria"
	"accessiai/internal/caption"
	"accessiai/internal/contrast"
	"accessiai/internal/models"
	"accessiai/internal/parser"
	"accessiai/internal/report"
	"accessiai/pkg/logger"
)

var ErrValidation = errors.New("invalid url")

// PageFetcher is satisfied by crawler.HTTPClient and crawler.BrowserFetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, string, time.Duration, error)
}

type ImageAnnotator interface {
	Annotate(ctx context.Context, c caption.Captioner, pageURL string, images []models.ImageElement) ([]models.ImageElement, error)
}

type Config struct {
	Fetcher PageFetcher
	Images  ImageAnnotator
	// Loader opens the caption model; nil disables captioning.
	Loader caption.Loader
	// Parallel runs the image, contrast and ARIA stages concurrently.
	Parallel bool
	Log      *logger.Logger
}

type Options struct {
	Patch bool
}

// Analyzer runs the fetch, parse, analyze, report and patch pipeline for
// one URL at a time. It holds no per-run state and is safe for concurrent use.
type Analyzer struct {
	fetcher   PageFetcher
	images    ImageAnnotator
	loader    caption.Loader
	parallel  bool
	parser    *parser.Parser
	assembler *report.Assembler
	patcher   func(markup string, rep *models.Report) string
	log       *logger.Logger
}

func New(c Config) *Analyzer {
	log := c.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Analyzer{
		fetcher:   c.Fetcher,
		images:    c.Images,
		loader:    c.Loader,
		parallel:  c.Parallel,
		parser:    parser.New(),
		assembler: report.New(log),
		patcher:   report.Patch,
		log:       log,
	}
}

// stageResults holds what each analysis stage produced. Every stage writes
// only its own fields, so the stages can run concurrently without locking.
type stageResults struct {
	images      []models.ImageElement
	imageErr    error
	contrast    []contrast.Result
	contrastErr error
	aria        []models.AriaIssue
	ariaErr     error
}

// Analyze never panics. Success is false only for an invalid URL or a fetch,
// parse or report failure; the other stages degrade and record a message.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, opts Options) (res models.AnalysisResult) {
	rawURL = strings.TrimSpace(rawURL)
	log := a.log.With("url", rawURL)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("analysis panicked: %v\n%s", r, debug.Stack())
			res = failure(fmt.Sprintf("Unexpected error: %v", r))
		}
	}()

	if err := Validate(rawURL); err != nil {
		log.Errorf("%v", err)
		return failure(fmt.Sprintf("Invalid URL: %v", err))
	}

	start := time.Now()
	log.Infof("fetching page")
	body, finalURL, contentType, fetchDur, err := a.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		log.Errorf("fetch failed: %v", err)
		return failure(fmt.Sprintf("Failed to fetch webpage: %v", err))
	}
	doc, err := a.parser.Parse(body, contentType)
	body.Close()
	if err != nil {
		log.Errorf("parse failed: %v", err)
		return failure(fmt.Sprintf("Failed to parse HTML: %v", err))
	}
	log.Infof("fetched %s in %s", finalURL, fetchDur)

	handle := caption.NewHandle(a.loader)
	defer func() {
		if err := handle.Release(); err != nil {
			log.Warnf("release caption model: %v", err)
		}
	}()

	st := a.runStages(ctx, log, doc, finalURL, handle)

	var msgs []string
	images := st.images
	if st.imageErr != nil {
		msgs = append(msgs, fmt.Sprintf("Error analyzing images: %v", st.imageErr))
		images = nil
	}
	if st.contrastErr != nil {
		msgs = append(msgs, fmt.Sprintf("Error checking contrast: %v", st.contrastErr))
	}
	if st.ariaErr != nil {
		msgs = append(msgs, fmt.Sprintf("Error checking ARIA compliance: %v", st.ariaErr))
	}

	rep, err := a.assembler.Assemble(rawURL, images, st.contrast, st.aria)
	if err != nil {
		log.Errorf("report failed: %v", err)
		return failure(fmt.Sprintf("Failed to generate report: %v", err))
	}

	res = models.AnalysisResult{Success: true, Report: rep, Errors: msgs}
	if opts.Patch {
		patched, err := a.patch(doc.Markup(), rep)
		if err != nil {
			log.Warnf("patch failed: %v", err)
			res.Errors = append(res.Errors, fmt.Sprintf("Error generating patched HTML: %v", err))
		} else {
			res.PatchedMarkup = patched
		}
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	log.Infof("analysis finished in %s: %d issues, %d errors", time.Since(start), rep.Summary.Total, len(res.Errors))
	return res
}

func (a *Analyzer) runStages(ctx context.Context, log *logger.Logger, doc *parser.Document, pageURL string, handle *caption.Handle) *stageResults {
	st := &stageResults{}
	stages := []func(){
		func() {
			st.images, st.imageErr = guard("image", func() ([]models.ImageElement, error) {
				imgs := doc.Images()
				log.Infof("image stage: %d images", len(imgs))
				if a.images == nil {
					return imgs, nil
				}
				return a.images.Annotate(ctx, handle, pageURL, imgs)
			})
		},
		func() {
			st.contrast, st.contrastErr = guard("contrast", func() ([]contrast.Result, error) {
				els := doc.ColoredText()
				failures := contrast.Check(els)
				log.Infof("contrast stage: %d of %d colored elements fail", len(failures), len(els))
				return failures, nil
			})
		},
		func() {
			st.aria, st.ariaErr = guard("aria", func() ([]models.AriaIssue, error) {
				els := doc.Interactive()
				issues := aria.Check(els)
				log.Infof("aria stage: %d of %d interactive elements unlabeled", len(issues), len(els))
				return issues, nil
			})
		},
	}

	if !a.parallel {
		for _, run := range stages {
			run()
		}
		return st
	}
	var g errgroup.Group
	for _, run := range stages {
		g.Go(func() error {
			run()
			return nil
		})
	}
	_ = g.Wait()
	return st
}

// guard turns a panic inside a stage into that stage's error.
func guard[T any](stage string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, err = zero, fmt.Errorf("%s stage panicked: %v", stage, r)
		}
	}()
	return fn()
}

func (a *Analyzer) patch(markup string, rep *models.Report) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return a.patcher(markup, rep), nil
}

// Validate accepts only non-empty absolute http(s) URLs.
func Validate(rawURL string) error {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return fmt.Errorf("%w: URL must be a non-empty string", ErrValidation)
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return fmt.Errorf("%w: URL must start with http:// or https://", ErrValidation)
	}
	return nil
}

func failure(msg string) models.AnalysisResult {
	return models.AnalysisResult{Success: false, Errors: []string{msg}}
}
