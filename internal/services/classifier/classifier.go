package classifier

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/period"
)

// minTitleLength filters out icon anchors and bare "PDF" links during the
// generic sweep. Structured containers are exempt because their short labels
// ("PPT", "REC") are meaningful in context.
const minTitleLength = 5

// Classifier turns a company profile page into categorised document
// candidates. It never fetches anything itself.
type Classifier struct {
	config *common.Config
	logger arbor.ILogger
}

func New(config *common.Config, logger arbor.ILogger) *Classifier {
	return &Classifier{
		config: config,
		logger: logger,
	}
}

// Classify parses the profile page HTML and returns every qualifying
// document link. Structured container matches win over generic keyword
// matches for the same URL.
func (c *Classifier) Classify(pageURL string, html []byte) ([]models.DocumentCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	structured := c.classifyStructured(doc, base)
	generic := c.classifyGeneric(doc, base)

	// Merge: dedupe by absolute URL, structured results first.
	seen := make(map[string]bool, len(structured)+len(generic))
	merged := make([]models.DocumentCandidate, 0, len(structured)+len(generic))
	for _, cand := range structured {
		if seen[cand.URL] {
			continue
		}
		seen[cand.URL] = true
		merged = append(merged, cand)
	}
	for _, cand := range generic {
		if seen[cand.URL] {
			continue
		}
		seen[cand.URL] = true
		merged = append(merged, cand)
	}

	c.logger.Debug().
		Str("page", pageURL).
		Int("structured", len(structured)).
		Int("generic", len(generic)).
		Int("merged", len(merged)).
		Msg("Classified profile page")

	return merged, nil
}

// classifyStructured reads the dedicated documents sections of the profile
// page: concall rows carry one period label shared by their Transcript, PPT
// and REC links, and the annual-reports list links straight to the filing
// host.
func (c *Classifier) classifyStructured(doc *goquery.Document, base *url.URL) []models.DocumentCandidate {
	var out []models.DocumentCandidate

	doc.Find(".concalls li, ul.concalls > li, .documents .concalls li").Each(func(_ int, row *goquery.Selection) {
		periodText := rowPeriodText(row)
		key := period.Parse(periodText)

		row.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			abs := absoluteURL(base, href)
			if abs == "" {
				return
			}
			label := strings.TrimSpace(a.Text())
			cat, ok := concallLinkCategory(label)
			if !ok {
				return
			}
			title := strings.TrimSpace(periodText + " " + label)
			out = append(out, models.DocumentCandidate{
				Title:    title,
				URL:      abs,
				Category: cat,
				Period:   key,
			})
		})
	})

	doc.Find(".annual-reports li a[href], ul.annual-reports a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := absoluteURL(base, href)
		if abs == "" || !c.onFilingHost(abs) {
			return
		}
		title := strings.TrimSpace(a.Text())
		out = append(out, models.DocumentCandidate{
			Title:    title,
			URL:      abs,
			Category: models.CategoryAnnualReport,
			Period:   period.Parse(title),
		})
	})

	return out
}

// classifyGeneric sweeps every anchor on the page and classifies by keyword.
// It catches layouts the structured pass does not know about.
func (c *Classifier) classifyGeneric(doc *goquery.Document, base *url.URL) []models.DocumentCandidate {
	var out []models.DocumentCandidate

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		title := strings.Join(strings.Fields(a.Text()), " ")
		if len(title) < minTitleLength {
			return
		}
		href, _ := a.Attr("href")
		abs := absoluteURL(base, href)
		if abs == "" {
			return
		}

		cat, ok := classifyTitle(title)
		if !ok {
			return
		}

		out = append(out, models.DocumentCandidate{
			Title:    title,
			URL:      abs,
			Category: cat,
			Period:   period.Parse(title),
		})
	})

	return out
}

func (c *Classifier) onFilingHost(abs string) bool {
	u, err := url.Parse(abs)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	filing := strings.ToLower(c.config.Sites.FilingHost)
	return host == filing || strings.HasSuffix(host, "."+strings.TrimPrefix(filing, "www."))
}

// classifyTitle maps a link title to a document category via keyword tables.
// Exclusions are checked first so routine filings never slip through on a
// weaker keyword.
func classifyTitle(title string) (models.DocumentCategory, bool) {
	upper := strings.ToUpper(title)

	excludeKeywords := []string{
		"ANNOUNCEMENT", "REGULATION 30", "REGULATION 74", "DISCLOSURE",
		"CREDIT RATING", "BOARD MEETING", "NEWSPAPER", "INTIMATION",
		"ESG", "SHAREHOLDING", "COMPLIANCE", "POSTAL BALLOT",
	}
	for _, kw := range excludeKeywords {
		if strings.Contains(upper, kw) {
			return "", false
		}
	}

	rules := []struct {
		category models.DocumentCategory
		keywords []string
	}{
		{models.CategoryTranscript, []string{"TRANSCRIPT"}},
		{models.CategoryPresentation, []string{"PRESENTATION", "INVESTOR DECK", "PPT"}},
		{models.CategoryRecording, []string{"RECORDING", "AUDIO", "VIDEO", "WEBCAST"}},
		{models.CategoryConcall, []string{"CONCALL", "CON CALL", "EARNINGS CALL", "CONFERENCE CALL", "INVESTOR CALL"}},
		{models.CategoryAnnualReport, []string{
			"ANNUAL REPORT", "YEARLY REPORT", "FINANCIAL STATEMENTS",
			"ANNUAL ACCOUNTS", "AUDITED FINANCIAL RESULTS",
		}},
	}
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(upper, kw) {
				return rule.category, true
			}
		}
	}

	// A fiscal-year phrase alone is too weak; it must ride with a word that
	// says the link is a report.
	if fyPhrase(upper) {
		for _, kw := range []string{"REPORT", "STATEMENT", "ACCOUNTS", "RESULTS"} {
			if strings.Contains(upper, kw) {
				return models.CategoryAnnualReport, true
			}
		}
	}

	return "", false
}

var fyPattern = regexp.MustCompile(`\bFY\s?\d{2}`)

func fyPhrase(upper string) bool {
	return strings.Contains(upper, "FINANCIAL YEAR") || fyPattern.MatchString(upper)
}

// concallLinkCategory classifies the short labels used inside structured
// concall rows. Unlike the generic sweep these are matched exactly, so "REC"
// does not need a length guard.
func concallLinkCategory(label string) (models.DocumentCategory, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "TRANSCRIPT":
		return models.CategoryTranscript, true
	case "PPT", "PRESENTATION":
		return models.CategoryPresentation, true
	case "REC", "RECORDING":
		return models.CategoryRecording, true
	}
	// Longer labels fall back to the keyword table.
	if cat, ok := classifyTitle(label); ok && cat.IsConcall() {
		return cat, true
	}
	return "", false
}

// rowPeriodText extracts the period label of a concall row: the row text with
// the link labels stripped out.
func rowPeriodText(row *goquery.Selection) string {
	clone := row.Clone()
	clone.Find("a").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}

func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
