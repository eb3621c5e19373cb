
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// MaxImages caps how many <img> elements a document reports.
const MaxImages = 10

const maxPreview = 100

var ErrParse = errors.New("parse markup")

type Parser struct{}

func New() *Parser { return &Parser{} }

var whitespaceRe = regexp.MustCompile(`\s+`)

// Document is a parsed, read-only page snapshot.
type Document struct {
	doc    *goquery.Document
	markup string
}

// Parse decodes r to UTF-8 using contentType and any <meta charset> hint,
// then builds the document tree.
func (p *Parser) Parse(r io.Reader, contentType string) (*Document, error) {
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrParse, err)
	}
	data := buf.Bytes()

	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		// fallback: if already utf-8, continue
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: decode: %v", ErrParse, err)
		}
		utf8data = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &Document{doc: doc, markup: string(utf8data)}, nil
}

// ParseString parses markup that is already UTF-8.
func (p *Parser) ParseString(markup string) (*Document, error) {
	return p.Parse(strings.NewReader(markup), "text/html; charset=utf-8")
}

// Markup returns the UTF-8 source the document was built from.
func (d *Document) Markup() string { return d.markup }

// ElementsByTag returns every element with the given tag name in document order.
func (d *Document) ElementsByTag(tag string) *goquery.Selection {
	return d.doc.Find(tag)
}

// FindByID returns the first element whose id attribute equals id, or nil.
func (d *Document) FindByID(id string) *goquery.Selection {
	return FindByID(d.doc, id)
}

// FindByID walks the tree instead of building a selector so ids containing
// CSS metacharacters still match literally.
func FindByID(doc *goquery.Document, id string) *goquery.Selection {
	if id == "" {
		return nil
	}
	sel := doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel
}

// Text returns the element text with runs of whitespace collapsed.
func Text(s *goquery.Selection) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s.Text(), " "))
}

// elementID returns the id attribute or a synthetic "{tag}_{n}" id.
func elementID(s *goquery.Selection, tag string, n int) string {
	if id := strings.TrimSpace(s.AttrOr("id", "")); id != "" {
		return id
	}
	return tag + "_" + strconv.Itoa(n)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
