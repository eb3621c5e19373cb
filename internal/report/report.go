
package report

import (
	"errors"
	"fmt"
	"time"

	"accessiai/internal/contrast"
	"accessiai/internal/models"
	"accessiai/pkg/logger"
)

var ErrReport = errors.New("report assembly failed")

// Assembler turns stage outputs into a Report.
type Assembler struct {
	now func() time.Time
	log *logger.Logger
}

func New(log *logger.Logger) *Assembler {
	if log == nil {
		log = logger.Discard()
	}
	return &Assembler{now: time.Now, log: log}
}

// Assemble builds the report for url. Images contribute an issue only when
// they lack alt text and carry a generated caption.
func (a *Assembler) Assemble(url string, images []models.ImageElement, failures []contrast.Result, aria []models.AriaIssue) (*models.Report, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty url", ErrReport)
	}
	issues := models.Issues{
		AltText:  AltIssues(images),
		Contrast: make([]models.ContrastIssue, 0, len(failures)),
		Aria:     make([]models.AriaIssue, 0, len(aria)),
	}
	for _, r := range failures {
		issues.Contrast = append(issues.Contrast, a.contrastIssue(r))
	}
	issues.Aria = append(issues.Aria, aria...)

	rep := &models.Report{
		URL:       url,
		Timestamp: a.now().UTC().Format(time.RFC3339),
		Summary: models.Summary{
			AltText:  len(issues.AltText),
			Contrast: len(issues.Contrast),
			Aria:     len(issues.Aria),
		},
		Issues: issues,
	}
	rep.Summary.Total = rep.Summary.AltText + rep.Summary.Contrast + rep.Summary.Aria
	a.log.Infof("report for %s: %d issues", url, rep.Summary.Total)
	return rep, nil
}

func AltIssues(images []models.ImageElement) []models.AltTextIssue {
	out := make([]models.AltTextIssue, 0)
	for _, img := range images {
		if img.HasAlt || img.GeneratedAltText == "" {
			continue
		}
		out = append(out, models.AltTextIssue{
			ElementID:    img.ID,
			CurrentAlt:   img.CurrentAlt,
			SuggestedAlt: img.GeneratedAltText,
			ImageURL:     img.SourceURL,
		})
	}
	return out
}

// contrastIssue falls back to the current colors when no fix can be computed.
func (a *Assembler) contrastIssue(r contrast.Result) models.ContrastIssue {
	issue := models.ContrastIssue{
		ElementID:      r.Element.ID,
		Tag:            r.Element.Tag,
		TextPreview:    r.Element.TextPreview,
		CurrentFg:      r.Foreground,
		CurrentBg:      r.Background,
		Ratio:          r.Ratio,
		RequiredRatio:  models.RequiredRatio,
		SuggestedFg:    r.Foreground,
		SuggestedRatio: r.Ratio,
	}
	fg, err := contrast.SuggestFix(r.Foreground, r.Background, contrast.Threshold)
	if err != nil {
		a.log.Warnf("no color fix for %s: %v", r.Element.ID, err)
		return issue
	}
	ratio, err := contrast.ContrastRatio(fg, r.Background)
	if err != nil {
		a.log.Warnf("no color fix for %s: %v", r.Element.ID, err)
		return issue
	}
	issue.SuggestedFg = fg
	issue.SuggestedRatio = ratio
	return issue
}
