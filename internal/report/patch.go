
package report

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"accessiai/internal/models"
	"accessiai/internal/parser"
)

// Patch applies the report's fixes to a fresh parse of markup and returns the
// result. Issues whose element cannot be found are skipped. Markup that does
// not parse is returned unchanged.
func Patch(markup string, rep *models.Report) string {
	if rep == nil {
		return markup
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}

	for _, is := range rep.Issues.AltText {
		el := parser.FindByID(doc, is.ElementID)
		if el == nil || is.SuggestedAlt == "" || goquery.NodeName(el) != "img" {
			continue
		}
		el.SetAttr("alt", is.SuggestedAlt)
	}
	for _, is := range rep.Issues.Contrast {
		el := parser.FindByID(doc, is.ElementID)
		if el == nil || is.SuggestedFg == "" {
			continue
		}
		style, _ := el.Attr("style")
		el.SetAttr("style", RewriteColor(style, is.SuggestedFg))
	}
	for _, is := range rep.Issues.Aria {
		el := parser.FindByID(doc, is.ElementID)
		if el == nil || is.SuggestedLabel == "" {
			continue
		}
		el.SetAttr("aria-label", is.SuggestedLabel)
	}

	out, err := render(doc, markup)
	if err != nil {
		return markup
	}
	return out
}

// RewriteColor drops every "color" declaration from an inline style and
// appends "color: fg". Other declarations keep their order.
func RewriteColor(style, fg string) string {
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(prop), "color") {
			continue
		}
		kept = append(kept, decl)
	}
	kept = append(kept, "color: "+fg)
	return strings.Join(kept, "; ")
}

// render keeps fragments as fragments: the parser wraps them in html/body,
// which is stripped again unless the input carried any document-level markup.
func render(doc *goquery.Document, markup string) (string, error) {
	if isDocument(markup) {
		return goquery.OuterHtml(doc.Selection)
	}
	return doc.Find("body").Html()
}

var documentMarkers = []string{"<!doctype", "<html", "<head", "<body"}

func isDocument(markup string) bool {
	lower := strings.ToLower(markup)
	for _, m := range documentMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
