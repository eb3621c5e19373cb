
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"accessiai/internal/models"
)

const textTags = "p,span,div,h1,h2,h3,h4,h5,h6,a,button"

// Images returns the first MaxImages <img> elements. An empty alt attribute
// counts as missing.
func (d *Document) Images() []models.ImageElement {
	var out []models.ImageElement
	d.doc.Find("img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= MaxImages {
			return false
		}
		alt := s.AttrOr("alt", "")
		out = append(out, models.ImageElement{
			ID:         elementID(s, "img", i),
			SourceURL:  strings.TrimSpace(s.AttrOr("src", "")),
			CurrentAlt: alt,
			HasAlt:     alt != "",
			Title:      s.AttrOr("title", ""),
		})
		return true
	})
	return out
}

// Interactive returns buttons, then inputs, then links.
func (d *Document) Interactive() []models.Interactive {
	var out []models.Interactive

	d.doc.Find("button").Each(func(i int, s *goquery.Selection) {
		text := Text(s)
		aria := s.AttrOr("aria-label", "")
		out = append(out, &models.Button{
			InteractiveBase: models.InteractiveBase{
				ID:          elementID(s, "button", i),
				HasLabel:    aria != "" || text != "" || d.hasLabelledBy(s),
				AriaLabel:   aria,
				TextContent: text,
			},
			Type:  strings.ToLower(s.AttrOr("type", "button")),
			Title: s.AttrOr("title", ""),
		})
	})

	n := 0
	d.doc.Find("input").Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "text")))
		if typ == "hidden" {
			return
		}
		aria := s.AttrOr("aria-label", "")
		out = append(out, &models.Input{
			InteractiveBase: models.InteractiveBase{
				ID:        elementID(s, "input", n),
				HasLabel:  aria != "" || d.hasAssociatedLabel(s) || d.hasLabelledBy(s),
				AriaLabel: aria,
			},
			InputType:   typ,
			Placeholder: s.AttrOr("placeholder", ""),
			Name:        s.AttrOr("name", ""),
		})
		n++
	})

	d.doc.Find("a").Each(func(i int, s *goquery.Selection) {
		text := Text(s)
		aria := s.AttrOr("aria-label", "")
		out = append(out, &models.Link{
			InteractiveBase: models.InteractiveBase{
				ID:          elementID(s, "a", i),
				HasLabel:    aria != "" || text != "" || d.hasLabelledBy(s),
				AriaLabel:   aria,
				TextContent: text,
			},
			Href:  s.AttrOr("href", ""),
			Title: s.AttrOr("title", ""),
		})
	})
	return out
}

func (d *Document) hasAssociatedLabel(s *goquery.Selection) bool {
	if s.ParentsFiltered("label").Length() > 0 {
		return true
	}
	id := strings.TrimSpace(s.AttrOr("id", ""))
	if id == "" {
		return false
	}
	found := false
	d.doc.Find("label[for]").EachWithBreak(func(_ int, l *goquery.Selection) bool {
		if l.AttrOr("for", "") == id {
			found = true
		}
		return !found
	})
	return found
}

// hasLabelledBy reports whether aria-labelledby points at an element that exists.
func (d *Document) hasLabelledBy(s *goquery.Selection) bool {
	for _, ref := range strings.Fields(s.AttrOr("aria-labelledby", "")) {
		if d.FindByID(ref) != nil {
			return true
		}
	}
	return false
}

// ColoredText returns non-empty text elements that declare an inline color
// or background-color. Ids are synthesized per tag as "{tag}_{n}".
func (d *Document) ColoredText() []models.ColoredTextElement {
	var out []models.ColoredTextElement
	seen := map[string]int{}
	d.doc.Find(textTags).Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		n := seen[tag]
		seen[tag]++

		text := Text(s)
		if text == "" {
			return
		}
		style := s.AttrOr("style", "")
		fg := StyleValue(style, "color")
		bg := StyleValue(style, "background-color")
		if fg == "" && bg == "" {
			return
		}
		out = append(out, models.ColoredTextElement{
			ID:          elementID(s, tag, n),
			Tag:         tag,
			TextPreview: truncateRunes(text, maxPreview),
			Foreground:  fg,
			Background:  bg,
			RawStyle:    style,
		})
	})
	return out
}

// StyleValue returns the value of property in an inline style declaration
// list, with any !important flag removed.
func StyleValue(style, property string) string {
	for _, decl := range strings.Split(style, ";") {
		key, value, ok := strings.Cut(decl, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), property) {
			continue
		}
		value = strings.TrimSpace(strings.ReplaceAll(value, "!important", ""))
		if value != "" {
			return value
		}
	}
	return ""
}
