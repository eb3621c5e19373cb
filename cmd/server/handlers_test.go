
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"accessiai/internal/analyzer"
	"accessiai/internal/config"
	"accessiai/internal/ioformats"
	"accessiai/internal/models"
	"accessiai/pkg/logger"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, url string, opts analyzer.Options) models.AnalysisResult {
	if strings.Contains(url, "down") {
		return models.AnalysisResult{Errors: []string{"Failed to fetch webpage: connection refused"}}
	}
	res := models.AnalysisResult{
		Success: true,
		Report: &models.Report{
			URL:     url,
			Summary: models.Summary{Total: 1, Aria: 1},
			Issues: models.Issues{
				AltText:  []models.AltTextIssue{},
				Contrast: []models.ContrastIssue{},
				Aria:     []models.AriaIssue{{ElementID: "b1", ElementKind: models.KindButton, SuggestedLabel: "Submit form"}},
			},
		},
		Errors: []string{},
	}
	if opts.Patch {
		res.PatchedMarkup = `<button id="b1" aria-label="Submit form"></button>`
	}
	return res
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newMux(stubAnalyzer{}, config.Default(), logger.Discard()))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := testServer(t)
	resp := post(t, srv.URL+"/analyze", `{"url":"https://example.com","patch":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var res models.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.PatchedMarkup == "" || res.Report.Summary.Aria != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAnalyzeEndpointFormats(t *testing.T) {
	srv := testServer(t)
	resp := post(t, srv.URL+"/analyze", `{"url":"https://example.com","format":"markdown"}`)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Fatalf("content type %q", ct)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), "Submit form") {
		t.Fatalf("markdown missing issue:\n%s", buf.String())
	}

	resp = post(t, srv.URL+"/analyze", `{"url":"https://example.com","format":"pdf"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown format: status %d", resp.StatusCode)
	}
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		method, body string
		status       int
	}{
		{http.MethodGet, "", http.StatusMethodNotAllowed},
		{http.MethodPost, "{", http.StatusBadRequest},
		{http.MethodPost, `{"url":"ftp://example.com"}`, http.StatusBadRequest},
		{http.MethodPost, `{"url":"https://down.example"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+"/analyze", strings.NewReader(tt.body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Fatalf("%s %q: want %d, got %d", tt.method, tt.body, tt.status, resp.StatusCode)
		}
	}
}

func TestBatchEndpoint(t *testing.T) {
	srv := testServer(t)
	resp := post(t, srv.URL+"/analyze/batch", `{"urls":["https://a.example","https://down.example"]}`)
	var recs []ioformats.Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Error != "" || recs[1].Error == "" {
		t.Fatalf("unexpected records %+v", recs)
	}
	if recs[0].URL != "https://a.example" {
		t.Fatalf("records must keep input order: %+v", recs)
	}
}

func TestUploadEndpoint(t *testing.T) {
	srv := testServer(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "urls.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("url\nhttps://a.example\nhttps://b.example\nhttps://down.example\n"))
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/analyze/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content type %q", ct)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 lines, got %d:\n%s", len(lines), buf.String())
	}
}

func uploadCSV(t *testing.T, url, csv string, fields map[string]string) []ioformats.Record {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile("file", "urls.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(csv))
	_ = mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var recs []ioformats.Record
	dec := json.NewDecoder(resp.Body)
	for dec.More() {
		var rec ioformats.Record
		if err := dec.Decode(&rec); err != nil {
			t.Fatal(err)
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestConfiguredPatchAppliesToEveryEndpoint(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Patch = true
	srv := httptest.NewServer(newMux(stubAnalyzer{}, cfg, logger.Discard()))
	defer srv.Close()

	var res models.AnalysisResult
	if err := json.NewDecoder(post(t, srv.URL+"/analyze", `{"url":"https://a.example"}`).Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.PatchedMarkup == "" {
		t.Fatal("/analyze: configured patch not applied")
	}

	var recs []ioformats.Record
	if err := json.NewDecoder(post(t, srv.URL+"/analyze/batch", `{"urls":["https://a.example"]}`).Body).Decode(&recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Result.PatchedMarkup == "" {
		t.Fatalf("/analyze/batch: configured patch not applied: %+v", recs)
	}

	recs = uploadCSV(t, srv.URL+"/analyze/upload", "url\nhttps://a.example\n", nil)
	if len(recs) != 1 || recs[0].Result.PatchedMarkup == "" {
		t.Fatalf("/analyze/upload: configured patch not applied: %+v", recs)
	}
}

func TestUploadEndpointPatchField(t *testing.T) {
	srv := testServer(t)
	recs := uploadCSV(t, srv.URL+"/analyze/upload", "url\nhttps://a.example\n", nil)
	if len(recs) != 1 || recs[0].Result.PatchedMarkup != "" {
		t.Fatalf("patch not requested: %+v", recs)
	}
	recs = uploadCSV(t, srv.URL+"/analyze/upload", "url\nhttps://a.example\n", map[string]string{"patch": "true"})
	if len(recs) != 1 || recs[0].Result.PatchedMarkup == "" {
		t.Fatalf("patch field ignored: %+v", recs)
	}
}
