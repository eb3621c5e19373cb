
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"accessiai/internal/analyzer"
	"accessiai/internal/config"
	"accessiai/internal/ioformats"
	"accessiai/internal/models"
	"accessiai/internal/report"
	"accessiai/pkg/logger"
)

type pageAnalyzer interface {
	Analyze(ctx context.Context, url string, opts analyzer.Options) models.AnalysisResult
}

type analyzeReq struct {
	URL    string `json:"url"`
	Patch  bool   `json:"patch"`
	Format string `json:"format"`
}

type batchReq struct {
	URLs  []string `json:"urls"`
	Patch bool     `json:"patch"`
}

const batchConcurrency = 4

func newMux(a pageAnalyzer, cfg *config.Config, l *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// POST /analyze  { "url": "https://...", "patch": true, "format": "json" }
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req analyzeReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		if req.Format == "" {
			req.Format = cfg.Output.Format
		}
		format, err := report.ParseFormat(req.Format)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := analyzer.Validate(req.URL); err != nil {
			writeJSON(w, http.StatusBadRequest, models.AnalysisResult{Errors: []string{"Invalid URL: " + err.Error()}})
			return
		}

		res := a.Analyze(r.Context(), req.URL, analyzer.Options{Patch: req.Patch || cfg.Analysis.Patch})
		if !res.Success {
			writeJSON(w, http.StatusBadGateway, res)
			return
		}
		if format == report.FormatJSON {
			writeJSON(w, http.StatusOK, res)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		if err := report.Render(w, res.Report, format); err != nil {
			l.Errorf("render report: %v", err)
		}
	})

	// POST /analyze/batch  { "urls": ["https://...", "..."], "patch": true }
	mux.HandleFunc("/analyze/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req batchReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		results := make([]ioformats.Record, len(req.URLs))
		var g errgroup.Group
		g.SetLimit(batchConcurrency)
		for i, u := range req.URLs {
			g.Go(func() error {
				results[i] = ioformats.NewRecord(u, a.Analyze(r.Context(), u, analyzer.Options{Patch: req.Patch || cfg.Analysis.Patch}))
				return nil
			})
		}
		_ = g.Wait()
		writeJSON(w, http.StatusOK, results)
	})

	// POST /analyze/upload (multipart file=..., patch=true) -> NDJSON stream
	mux.HandleFunc("/analyze/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart parse error"})
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file part 'file' required"})
			return
		}
		defer f.Close()

		urls, err := ioformats.Read(f, hdr.Filename)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		opts := analyzer.Options{Patch: cfg.Analysis.Patch}
		if v, err := strconv.ParseBool(r.FormValue("patch")); err == nil && v {
			opts.Patch = true
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		out := ioformats.NewWriter(w)
		flusher, _ := w.(http.Flusher)
		var mu sync.Mutex

		var g errgroup.Group
		g.SetLimit(batchConcurrency)
		for _, u := range urls {
			g.Go(func() error {
				rec := ioformats.NewRecord(u, a.Analyze(r.Context(), u, opts))
				mu.Lock()
				defer mu.Unlock()
				if err := out.Write(rec); err != nil {
					return err
				}
				if flusher != nil {
					flusher.Flush()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			l.Warnf("upload stream: %v", err)
		}
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func logRequest(l *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		l.Infof("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
