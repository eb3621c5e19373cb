
package aria

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"accessiai/internal/models"
)

var inputTypeLabels = map[string]string{
	"text": "Text input", "email": "Email address", "password": "Password", "number": "Number input",
	"tel": "Telephone number", "url": "URL", "search": "Search", "date": "Date", "time": "Time",
	"checkbox": "Checkbox", "radio": "Radio button", "file": "File upload", "submit": "Submit",
	"reset": "Reset", "button": "Button",
}

var separators = strings.NewReplacer("-", " ", "_", " ")

// Suggest returns an accessible name for el, or "" for an unknown kind.
func Suggest(el models.Interactive) string {
	switch e := el.(type) {
	case *models.Button:
		return suggestButton(e)
	case *models.Input:
		return suggestInput(e)
	case *models.Link:
		return suggestLink(e)
	}
	return ""
}

func suggestButton(b *models.Button) string {
	if t := strings.TrimSpace(b.TextContent); t != "" {
		return t
	}
	if t := strings.TrimSpace(b.Title); t != "" {
		return t
	}
	switch strings.ToLower(strings.TrimSpace(b.Type)) {
	case "submit":
		return "Submit form"
	case "reset":
		return "Reset form"
	}
	return "Button"
}

func suggestInput(in *models.Input) string {
	if p := strings.TrimSpace(in.Placeholder); p != "" {
		return p
	}
	if n := humanize(in.Name); n != "" {
		return n
	}
	typ := strings.ToLower(strings.TrimSpace(in.InputType))
	if typ == "" {
		typ = "text"
	}
	if label, ok := inputTypeLabels[typ]; ok {
		return label
	}
	return typ + " input"
}

func suggestLink(l *models.Link) string {
	if t := strings.TrimSpace(l.TextContent); t != "" {
		return t
	}
	if t := strings.TrimSpace(l.Title); t != "" {
		return t
	}
	if label := humanize(lastPathSegment(l.Href)); label != "" {
		return label
	}
	return "Link"
}

// lastPathSegment reduces an href to its final path segment: the query is
// cut first, then one trailing extension from the remaining path, then the
// last "/" segment is kept. "https://x.com/docs/guide.pdf?v=2" -> "guide",
// "/v1.2/about" -> "v1", "/docs/" -> "".
func lastPathSegment(href string) string {
	h := strings.TrimSpace(href)
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
		j := strings.IndexByte(h, '/')
		if j < 0 {
			return ""
		}
		h = h[j+1:]
	}
	if i := strings.IndexByte(h, '?'); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndexByte(h, '.'); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndexByte(h, '/'); i >= 0 {
		h = h[i+1:]
	}
	return h
}

// humanize turns "contact-us" or "email_address" into "Contact Us" / "Email Address".
func humanize(s string) string {
	words := strings.Fields(separators.Replace(s))
	if len(words) == 0 {
		return ""
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

func describe(kind models.ElementKind) string {
	switch kind {
	case models.KindButton:
		return "Button lacks text content and aria-label"
	case models.KindInput:
		return "Input lacks associated label and aria-label"
	case models.KindLink:
		return "Link lacks text content and aria-label"
	}
	return "Element lacks accessible label"
}

// Check reports every unlabeled element for which a name can be suggested.
// Elements that already have a label are never reported.
func Check(elements []models.Interactive) []models.AriaIssue {
	var issues []models.AriaIssue
	for _, el := range elements {
		base := el.Base()
		if base.HasLabel {
			continue
		}
		label := Suggest(el)
		if label == "" {
			continue
		}
		issues = append(issues, models.AriaIssue{
			ElementID:      base.ID,
			ElementKind:    el.Kind(),
			Description:    describe(el.Kind()),
			SuggestedLabel: label,
			CurrentLabel:   base.AriaLabel,
			CurrentText:    base.TextContent,
		})
	}
	return issues
}
