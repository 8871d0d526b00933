package period

import (
	"sort"
	"testing"
	"time"

	"github.com/ternarybob/colligo/internal/models"
)

func TestParseQuarterFY(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantQuarter int
		wantYear    int
		wantLabel   string
	}{
		{
			name:        "standard quarter",
			text:        "Q1 FY2024 Earnings Call Transcript",
			wantQuarter: 1,
			wantYear:    2024,
			wantLabel:   "Q1 FY2024",
		},
		{
			name:        "two digit year",
			text:        "Q3FY24 Investor Presentation",
			wantQuarter: 3,
			wantYear:    2024,
			wantLabel:   "Q3 FY2024",
		},
		{
			name:        "spaced out",
			text:        "q4  fy  2023 concall",
			wantQuarter: 4,
			wantYear:    2023,
			wantLabel:   "Q4 FY2023",
		},
		{
			name:        "quarter wins over bare year",
			text:        "Q2 FY2025 results for 2024",
			wantQuarter: 2,
			wantYear:    2025,
			wantLabel:   "Q2 FY2025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if !got.Matched() {
				t.Fatalf("Parse(%q) did not match", tt.text)
			}
			if got.Quarter != tt.wantQuarter {
				t.Errorf("quarter = %d, want %d", got.Quarter, tt.wantQuarter)
			}
			if got.FiscalYear != tt.wantYear {
				t.Errorf("fiscal year = %d, want %d", got.FiscalYear, tt.wantYear)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("label = %q, want %q", got.Label, tt.wantLabel)
			}
			if !got.ExactDate.IsZero() {
				t.Errorf("quarter period should carry no exact date, got %v", got.ExactDate)
			}
		})
	}
}

func TestParseMonthYear(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantMonth time.Month
		wantYear  int
		wantLabel string
	}{
		{"short month", "Transcript Apr 2025", time.April, 2025, "Apr-2025"},
		{"full month name", "Earnings call held in January 2024", time.January, 2024, "Jan-2024"},
		{"two digit year", "Concall Dec 23", time.December, 2023, "Dec-2023"},
		{"hyphenated", "Mar-2024 presentation", time.March, 2024, "Mar-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if !got.Matched() {
				t.Fatalf("Parse(%q) did not match", tt.text)
			}
			if got.ExactDate.Day() != 1 {
				t.Errorf("day = %d, want 1", got.ExactDate.Day())
			}
			if got.ExactDate.Month() != tt.wantMonth {
				t.Errorf("month = %v, want %v", got.ExactDate.Month(), tt.wantMonth)
			}
			if got.ExactDate.Year() != tt.wantYear {
				t.Errorf("year = %d, want %d", got.ExactDate.Year(), tt.wantYear)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("label = %q, want %q", got.Label, tt.wantLabel)
			}
			if got.Quarter != 0 {
				t.Errorf("quarter = %d, want 0", got.Quarter)
			}
		})
	}
}

func TestParseFiscalYearOnly(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantYear int
	}{
		{"financial year phrase", "Financial Year 2023 Annual Report", 2023},
		{"fy spaced", "FY 2022 annual accounts", 2022},
		{"fy compact", "FY2021 report", 2021},
		{"year word", "Report for the year 2020", 2020},
		{"bare year", "Annual Report 2019", 2019},
		{"fy short 2000s", "FY24 annual report", 2024},
		{"fy short 1990s", "FY99 annual report", 1999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if !got.Matched() {
				t.Fatalf("Parse(%q) did not match", tt.text)
			}
			if got.FiscalYear != tt.wantYear {
				t.Errorf("fiscal year = %d, want %d", got.FiscalYear, tt.wantYear)
			}
			wantDate := time.Date(tt.wantYear, time.March, 31, 0, 0, 0, 0, time.UTC)
			if !got.ExactDate.Equal(wantDate) {
				t.Errorf("exact date = %v, want fiscal year-end %v", got.ExactDate, wantDate)
			}
		})
	}
}

func TestParseNoMatch(t *testing.T) {
	for _, text := range []string{
		"",
		"Notice of board meeting",
		"Intimation under Regulation 30",
		"short",
	} {
		got := Parse(text)
		if got.Matched() {
			t.Errorf("Parse(%q) = %+v, want no match", text, got)
		}
		if got.Label != "" {
			t.Errorf("Parse(%q) label = %q, want empty", text, got.Label)
		}
	}
}

// Ordering across pattern families must be consistent with the synthesized
// dates: FY periods sit at their fiscal year-end regardless of how the year
// was written, and unknown periods sort oldest.
func TestPeriodOrdering(t *testing.T) {
	keys := []models.PeriodKey{
		Parse("FY2023"),
		Parse("FY2024"),
		Parse("Q1 FY2024"),
		Parse("no period here"),
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].EffectiveDate().After(keys[j].EffectiveDate())
	})

	// FY2024 and Q1 FY2024 share the synthesized year-end date; the stable
	// sort keeps their insertion order.
	if keys[0].Label != "FY2024" || keys[1].Label != "Q1 FY2024" {
		t.Errorf("most recent = %q, %q; want FY2024 then Q1 FY2024", keys[0].Label, keys[1].Label)
	}
	if keys[2].Label != "FY2023" {
		t.Errorf("third = %q, want FY2023", keys[2].Label)
	}
	if keys[3].Matched() {
		t.Errorf("unmatched period should sort last, got %+v", keys[3])
	}
}
