
package models

// RequiredRatio is the WCAG AA minimum contrast for normal-size text.
const RequiredRatio = 4.5

type ImageElement struct {
	ID               string `json:"elementId"`
	SourceURL        string `json:"sourceUrl"`
	CurrentAlt       string `json:"currentAlt"`
	HasAlt           bool   `json:"hasAlt"`
	Title            string `json:"title,omitempty"`
	GeneratedAltText string `json:"generatedAltText,omitempty"`
}

type ColoredTextElement struct {
	ID          string `json:"elementId"`
	Tag         string `json:"tag"`
	TextPreview string `json:"textPreview"`
	Foreground  string `json:"foreground,omitempty"`
	Background  string `json:"background,omitempty"`
	RawStyle    string `json:"rawStyle,omitempty"`
}

type AltTextIssue struct {
	ElementID    string `json:"elementId" yaml:"elementId"`
	CurrentAlt   string `json:"currentAlt" yaml:"currentAlt"`
	SuggestedAlt string `json:"suggestedAlt" yaml:"suggestedAlt"`
	ImageURL     string `json:"imageUrl" yaml:"imageUrl"`
}

type ContrastIssue struct {
	ElementID      string  `json:"elementId" yaml:"elementId"`
	Tag            string  `json:"tag" yaml:"tag"`
	TextPreview    string  `json:"textPreview" yaml:"textPreview"`
	CurrentFg      string  `json:"currentFg" yaml:"currentFg"`
	CurrentBg      string  `json:"currentBg" yaml:"currentBg"`
	Ratio          float64 `json:"ratio" yaml:"ratio"`
	RequiredRatio  float64 `json:"requiredRatio" yaml:"requiredRatio"`
	SuggestedFg    string  `json:"suggestedFg" yaml:"suggestedFg"`
	SuggestedRatio float64 `json:"suggestedRatio" yaml:"suggestedRatio"`
}

type AriaIssue struct {
	ElementID      string      `json:"elementId" yaml:"elementId"`
	ElementKind    ElementKind `json:"elementKind" yaml:"elementKind"`
	Description    string      `json:"description" yaml:"description"`
	SuggestedLabel string      `json:"suggestedLabel" yaml:"suggestedLabel"`
	CurrentLabel   string      `json:"currentLabel" yaml:"currentLabel"`
	CurrentText    string      `json:"currentText" yaml:"currentText"`
}

type Summary struct {
	Total    int `json:"total" yaml:"total"`
	AltText  int `json:"altText" yaml:"altText"`
	Contrast int `json:"contrast" yaml:"contrast"`
	Aria     int `json:"aria" yaml:"aria"`
}

type Issues struct {
	AltText  []AltTextIssue  `json:"altText" yaml:"altText"`
	Contrast []ContrastIssue `json:"contrast" yaml:"contrast"`
	Aria     []AriaIssue     `json:"aria" yaml:"aria"`
}

type Report struct {
	URL       string  `json:"url" yaml:"url"`
	Timestamp string  `json:"timestamp" yaml:"timestamp"`
	Summary   Summary `json:"summary" yaml:"summary"`
	Issues    Issues  `json:"issues" yaml:"issues"`
}

// AnalysisResult is the single value returned by a pipeline run. Success is
// false only when a fatal stage failed; Errors then holds exactly one message.
type AnalysisResult struct {
	Success       bool     `json:"success"`
	Report        *Report  `json:"report,omitempty"`
	PatchedMarkup string   `json:"patchedMarkup,omitempty"`
	Errors        []string `json:"errors"`
}
