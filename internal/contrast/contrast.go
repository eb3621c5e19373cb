
package contrast

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"accessiai/internal/models"
)

// Threshold is the minimum passing ratio; anything strictly below fails.
const Threshold = models.RequiredRatio

const (
	Black = "#000000"
	White = "#ffffff"
)

var ErrColorFormat = errors.New("invalid color format")

var (
	hexRe = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)
	rgbRe = regexp.MustCompile(`^rgb\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*\)$`)
)

type RGB struct {
	R, G, B uint8
}

// HexToRGB accepts "rrggbb" with an optional leading '#'.
func HexToRGB(s string) (RGB, error) {
	h := strings.TrimPrefix(s, "#")
	if !hexRe.MatchString(h) {
		return RGB{}, fmt.Errorf("%w: %q", ErrColorFormat, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrColorFormat, s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func NormalizeChannel(v uint8) float64 {
	n := float64(v) / 255
	if n <= 0.03928 {
		return n / 12.92
	}
	return math.Pow((n+0.055)/1.055, 2.4)
}

func RelativeLuminance(c RGB) float64 {
	return 0.2126*NormalizeChannel(c.R) + 0.7152*NormalizeChannel(c.G) + 0.0722*NormalizeChannel(c.B)
}

// Ratio is order independent and rounded to two decimals.
func Ratio(a, b RGB) float64 {
	la, lb := RelativeLuminance(a), RelativeLuminance(b)
	hi, lo := math.Max(la, lb), math.Min(la, lb)
	return round2((hi + 0.05) / (lo + 0.05))
}

// ContrastRatio parses two hex colors and returns their ratio.
func ContrastRatio(fg, bg string) (float64, error) {
	a, err := HexToRGB(fg)
	if err != nil {
		return 0, err
	}
	b, err := HexToRGB(bg)
	if err != nil {
		return 0, err
	}
	return Ratio(a, b), nil
}

// ParseColor normalizes "#rrggbb" or "rgb(r, g, b)" to lowercase hex. Named
// colors, rgba(), hsl() and short hex are reported as not parsable.
func ParseColor(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "#") {
		c, err := HexToRGB(s)
		if err != nil {
			return "", false
		}
		return c.Hex(), true
	}
	m := rgbRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	var ch [3]uint8
	for i := range ch {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v > 255 {
			return "", false
		}
		ch[i] = uint8(v)
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}.Hex(), true
}

// Result is a contrast measurement for one element.
type Result struct {
	Element    models.ColoredTextElement
	Foreground string
	Background string
	Ratio      float64
	Passes     bool
}

// Check returns only the elements that fail the threshold. Elements missing
// either color, or carrying a color ParseColor rejects, are dropped.
func Check(elements []models.ColoredTextElement) []Result {
	var out []Result
	for _, el := range elements {
		if el.Foreground == "" || el.Background == "" {
			continue
		}
		fg, ok := ParseColor(el.Foreground)
		if !ok {
			continue
		}
		bg, ok := ParseColor(el.Background)
		if !ok {
			continue
		}
		ratio, err := ContrastRatio(fg, bg)
		if err != nil {
			continue
		}
		if ratio >= Threshold {
			continue
		}
		out = append(out, Result{
			Element:    el,
			Foreground: fg,
			Background: bg,
			Ratio:      ratio,
			Passes:     false,
		})
	}
	return out
}

// SuggestFix picks black or white text for bg. The choice follows background
// luminance first and falls back to whichever extreme contrasts more when the
// first pick misses target. fg does not influence the result.
func SuggestFix(fg, bg string, target float64) (string, error) {
	bgHex, ok := ParseColor(bg)
	if !ok {
		return "", fmt.Errorf("%w: background %q", ErrColorFormat, bg)
	}
	bgRGB, err := HexToRGB(bgHex)
	if err != nil {
		return "", err
	}
	pick := White
	if RelativeLuminance(bgRGB) > 0.5 {
		pick = Black
	}
	pickRGB, _ := HexToRGB(pick)
	if Ratio(pickRGB, bgRGB) >= target {
		return pick, nil
	}
	black := Ratio(RGB{}, bgRGB)
	white := Ratio(RGB{255, 255, 255}, bgRGB)
	if black >= white {
		return Black, nil
	}
	return White, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
