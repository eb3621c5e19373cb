
package analyzer

import (
	"time"

	"accessiai/internal/caption"
	"accessiai/internal/config"
	"accessiai/internal/crawler"
	"accessiai/pkg/logger"
)

// FromConfig wires the HTTP or headless-browser fetcher, the image annotator
// and the caption provider named in cfg. The returned close func releases the
// browser, if one was started.
func FromConfig(cfg *config.Config, log *logger.Logger) (*Analyzer, func() error, error) {
	loader, err := caption.NewLoader(cfg.Caption.Provider, cfg.Caption.Model)
	if err != nil {
		return nil, nil, err
	}
	client := crawler.NewHTTPClient(crawler.PageTimeout, 5*time.Second, cfg.Fetch.MaxBytes)

	var fetcher PageFetcher = client
	closeFn := func() error { return nil }
	if cfg.Fetch.Render {
		b := crawler.NewBrowserFetcher(crawler.PageTimeout)
		fetcher, closeFn = b, b.Close
	}

	a := New(Config{
		Fetcher:  fetcher,
		Images:   caption.NewAnnotator(client, cfg.Images.Concurrency, cfg.Caption.MaxDimension, log),
		Loader:   loader,
		Parallel: cfg.Analysis.ParallelStages,
		Log:      log,
	})
	return a, closeFn, nil
}
