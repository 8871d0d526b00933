package models

import (
	"fmt"
	"time"
)

// Indian fiscal years end on 31 March.
const (
	FiscalYearEndMonth = time.March
	FiscalYearEndDay   = 31
)

// PeriodKey is the canonical temporal identity of a disclosure document.
// A zero PeriodKey means no reporting period could be extracted, which is a
// normal outcome for free-text titles, not an error.
type PeriodKey struct {
	Label      string    `json:"label"`       // e.g. "Q1 FY2024", "Mar-2024", "FY2023"
	ExactDate  time.Time `json:"exact_date"`  // zero when only quarter/fiscal year is known
	Quarter    int       `json:"quarter"`     // 1..4, 0 when unknown
	FiscalYear int       `json:"fiscal_year"` // 0 when unknown
}

// QuarterPeriod builds a PeriodKey for a quarter within a fiscal year.
func QuarterPeriod(quarter, fiscalYear int) PeriodKey {
	return PeriodKey{
		Label:      fmt.Sprintf("Q%d FY%d", quarter, fiscalYear),
		Quarter:    quarter,
		FiscalYear: fiscalYear,
	}
}

// MonthPeriod builds a PeriodKey for a calendar month. The day is pinned to
// the first of the month.
func MonthPeriod(month time.Month, year int) PeriodKey {
	date := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return PeriodKey{
		Label:     date.Format("Jan-2006"),
		ExactDate: date,
	}
}

// FiscalYearPeriod builds a PeriodKey for a fiscal year, dated at the fiscal
// year-end.
func FiscalYearPeriod(year int) PeriodKey {
	return PeriodKey{
		Label:      fmt.Sprintf("FY%d", year),
		ExactDate:  FiscalYearEnd(year),
		FiscalYear: year,
	}
}

// FiscalYearEnd returns 31 March of the given year.
func FiscalYearEnd(year int) time.Time {
	return time.Date(year, FiscalYearEndMonth, FiscalYearEndDay, 0, 0, 0, 0, time.UTC)
}

// Matched reports whether any period information was extracted.
func (p PeriodKey) Matched() bool {
	return p.Quarter != 0 || p.FiscalYear != 0 || !p.ExactDate.IsZero()
}

// EffectiveDate is the ordering key for recency sorting. Quarter-only periods
// carry no exact date, so the fiscal year-end stands in for them; a fully
// unknown period orders as the zero time, i.e. oldest.
func (p PeriodKey) EffectiveDate() time.Time {
	if !p.ExactDate.IsZero() {
		return p.ExactDate
	}
	if p.FiscalYear != 0 {
		return FiscalYearEnd(p.FiscalYear)
	}
	return time.Time{}
}

// After reports whether p is a more recent period than other.
func (p PeriodKey) After(other PeriodKey) bool {
	return p.EffectiveDate().After(other.EffectiveDate())
}
