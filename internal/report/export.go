
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"accessiai/internal/models"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// DefaultDir is where Export writes when no path is given.
const DefaultDir = "reports"

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s (use json, yaml, markdown or html)", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render writes rep to w in the given format.
func Render(w io.Writer, rep *models.Report, f Format) error {
	if rep == nil {
		return fmt.Errorf("%w: nil report", ErrReport)
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(rep))
		return err
	case FormatHTML:
		page, err := HTML(rep)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, page)
		return err
	default:
		return fmt.Errorf("unsupported report format: %s", f)
	}
}

// Export writes rep to path, or to reports/accessibility_report_{stamp}.{ext}
// when path is empty, and returns the path written.
func Export(rep *models.Report, f Format, path string) (string, error) {
	if path == "" {
		name := fmt.Sprintf("accessibility_report_%s.%s", time.Now().UTC().Format("20060102_150405"), f)
		path = filepath.Join(DefaultDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	var buf bytes.Buffer
	if err := Render(&buf, rep, f); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}

func Markdown(rep *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Accessibility Report\n\n")
	fmt.Fprintf(&b, "- **URL:** %s\n- **Generated:** %s\n\n", rep.URL, rep.Timestamp)

	b.WriteString("## Summary\n\n| Category | Issues |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total | %d |\n| Alt text | %d |\n| Contrast | %d |\n| ARIA | %d |\n\n",
		rep.Summary.Total, rep.Summary.AltText, rep.Summary.Contrast, rep.Summary.Aria)

	b.WriteString("## Alt Text Issues\n\n")
	if len(rep.Issues.AltText) == 0 {
		b.WriteString("No alt text issues found.\n\n")
	}
	for _, is := range rep.Issues.AltText {
		fmt.Fprintf(&b, "### Image `%s`\n\n", is.ElementID)
		fmt.Fprintf(&b, "- Current alt: %s\n", orEmpty(is.CurrentAlt))
		fmt.Fprintf(&b, "- Image URL: %s\n", is.ImageURL)
		fmt.Fprintf(&b, "- Suggested alt: %s\n\n", is.SuggestedAlt)
	}

	b.WriteString("## Color Contrast Issues\n\n")
	if len(rep.Issues.Contrast) == 0 {
		b.WriteString("No contrast issues found.\n\n")
	}
	for _, is := range rep.Issues.Contrast {
		fmt.Fprintf(&b, "### `%s` (%s)\n\n", is.ElementID, is.Tag)
		fmt.Fprintf(&b, "- Text: %s\n", orEmpty(is.TextPreview))
		fmt.Fprintf(&b, "- Ratio: %.2f:1 (required %.1f:1)\n", is.Ratio, is.RequiredRatio)
		fmt.Fprintf(&b, "- Colors: text %s on %s\n", is.CurrentFg, is.CurrentBg)
		fmt.Fprintf(&b, "- Suggested fix: text color %s for %.2f:1\n\n", is.SuggestedFg, is.SuggestedRatio)
	}

	b.WriteString("## ARIA Label Issues\n\n")
	if len(rep.Issues.Aria) == 0 {
		b.WriteString("No ARIA issues found.\n\n")
	}
	for _, is := range rep.Issues.Aria {
		fmt.Fprintf(&b, "### %s `%s`\n\n", is.ElementKind, is.ElementID)
		fmt.Fprintf(&b, "- Issue: %s\n", is.Description)
		fmt.Fprintf(&b, "- Current text: %s\n", orEmpty(is.CurrentText))
		fmt.Fprintf(&b, "- Suggested aria-label: \"%s\"\n\n", is.SuggestedLabel)
	}
	return b.String()
}

var (
	md     = goldmark.New(goldmark.WithExtensions(extension.Table))
	policy = bluemonday.UGCPolicy()
)

// HTML renders the Markdown report and sanitizes it, since issue text comes
// straight from the analyzed page.
func HTML(rep *models.Report) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(rep)), &body); err != nil {
		return "", fmt.Errorf("%w: render html: %v", ErrReport, err)
	}
	clean := policy.SanitizeBytes(body.Bytes())
	return fmt.Sprintf(htmlShell, html.EscapeString(rep.URL), clean), nil
}

const htmlShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Accessibility Report: %s</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 1000px; margin: 0 auto; padding: 20px; }
h2 { border-bottom: 2px solid #3498db; padding-bottom: 6px; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 4px 12px; }
code { background: #ecf0f1; padding: 1px 4px; }
</style>
</head>
<body>
%s</body>
</html>
`

func orEmpty(s string) string {
	if s == "" {
		return "(empty)"
	}
	return s
}
