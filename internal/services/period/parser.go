// Package period converts free-text fragments from disclosure link titles
// into canonical reporting-period keys.
package period

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/colligo/internal/models"
)

// Pattern families in fixed priority order. The first family that matches
// wins; a text matching none yields the zero PeriodKey, which is a normal
// outcome, not an error.
var (
	quarterPattern = regexp.MustCompile(`q([1-4])\s*fy\s*(\d{2,4})`)
	monthPattern   = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s\-,']*(\d{2,4})\b`)

	// Financial-year-only sub-patterns, most explicit first.
	fyLongPattern    = regexp.MustCompile(`financial year\s*(\d{4})`)
	fySpacedPattern  = regexp.MustCompile(`fy\s+(\d{4})`)
	fyCompactPattern = regexp.MustCompile(`fy(\d{4})`)
	yearWordPattern  = regexp.MustCompile(`year\s+(\d{4})`)
	bareYearPattern  = regexp.MustCompile(`\b(20\d{2})\b`)
	fyShortPattern   = regexp.MustCompile(`(?:financial year|fy)\s*[\-']?(\d{2})\b`)
)

var monthsByAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Parse extracts a canonical PeriodKey from free-form text. It never fails;
// text with no recognizable period returns the zero PeriodKey.
func Parse(text string) models.PeriodKey {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return models.PeriodKey{}
	}

	if m := quarterPattern.FindStringSubmatch(lower); m != nil {
		quarter, _ := strconv.Atoi(m[1])
		year := normalizeYear(mustAtoi(m[2]))
		return models.QuarterPeriod(quarter, year)
	}

	if m := monthPattern.FindStringSubmatch(lower); m != nil {
		month := monthsByAbbrev[m[1]]
		year := normalizeYear(mustAtoi(m[2]))
		return models.MonthPeriod(month, year)
	}

	if year, ok := matchFiscalYear(lower); ok {
		return models.FiscalYearPeriod(year)
	}

	return models.PeriodKey{}
}

// matchFiscalYear tries the financial-year-only sub-patterns in priority
// order.
func matchFiscalYear(lower string) (int, bool) {
	for _, pattern := range []*regexp.Regexp{
		fyLongPattern, fySpacedPattern, fyCompactPattern, yearWordPattern, bareYearPattern,
	} {
		if m := pattern.FindStringSubmatch(lower); m != nil {
			return mustAtoi(m[1]), true
		}
	}

	// Two-digit years count only when adjacent to an FY marker: 90-99 are
	// read as 1990s, 00-89 as 2000s.
	if m := fyShortPattern.FindStringSubmatch(lower); m != nil {
		short := mustAtoi(m[1])
		if short >= 90 {
			return 1900 + short, true
		}
		return 2000 + short, true
	}

	return 0, false
}

// normalizeYear maps two-digit years into the 2000s.
func normalizeYear(year int) int {
	if year < 100 {
		return 2000 + year
	}
	return year
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
