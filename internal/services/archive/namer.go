package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/colligo/internal/models"
)

// Namer derives deterministic archive filenames. It is pure: the same
// document always yields the same name, so re-runs can recognise files they
// already hold.
type Namer struct {
	// CurrentFiscalYear anchors the synthesized FY placeholder for annual
	// reports whose title never parsed to a year. Zero means "derive from
	// the clock".
	CurrentFiscalYear int
}

// FileName builds "{symbol}_{period}_{category}.{ext}" for one selected
// document. index is the document's zero-based position within its list and
// feeds the placeholders used when the period is unknown.
func (n Namer) FileName(symbol string, doc models.SelectedDocument, index int) string {
	period := n.periodToken(doc, index)
	category := categoryToken(doc)
	ext := extToken(doc)

	name := fmt.Sprintf("%s_%s_%s.%s", strings.ToUpper(symbol), period, category, ext)
	return sanitize(name)
}

func (n Namer) periodToken(doc models.SelectedDocument, index int) string {
	if doc.Period.Matched() {
		return strings.ReplaceAll(strings.ReplaceAll(doc.Period.Label, "/", "-"), " ", "-")
	}
	if doc.Category == models.CategoryAnnualReport {
		// Count backwards from the current fiscal year so a list of undated
		// reports still gets distinct, plausible year labels.
		return fmt.Sprintf("FY%d", n.currentFY()-index)
	}
	return fmt.Sprintf("doc-%d", index+1)
}

func (n Namer) currentFY() int {
	if n.CurrentFiscalYear > 0 {
		return n.CurrentFiscalYear
	}
	now := time.Now()
	// The fiscal year ends in March; April onwards belongs to the next one.
	if now.Month() >= time.April {
		return now.Year() + 1
	}
	return now.Year()
}

func categoryToken(doc models.SelectedDocument) string {
	if doc.Category != "" {
		return string(doc.Category)
	}

	lower := strings.ToLower(doc.Title)
	switch {
	case strings.Contains(lower, "annual report"), strings.Contains(lower, "financial year"):
		return string(models.CategoryAnnualReport)
	case strings.Contains(lower, "transcript"):
		return string(models.CategoryTranscript)
	case strings.Contains(lower, "presentation"):
		return string(models.CategoryPresentation)
	}
	return "document"
}

func extToken(doc models.SelectedDocument) string {
	if doc.Resolved.Kind != "" && doc.Resolved.Kind != models.KindUnknown {
		return doc.Resolved.Kind.Extension()
	}
	return models.KindFromURL(doc.URL).Extension()
}

// pathHostile are the characters no target filesystem accepts in a name.
const pathHostile = `<>:"/\|?*`

func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(pathHostile, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
