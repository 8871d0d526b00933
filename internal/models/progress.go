package models

import "time"

// ProgressKind classifies a progress event.
type ProgressKind string

const (
	ProgressStatus   ProgressKind = "status"
	ProgressInfo     ProgressKind = "info"
	ProgressSuccess  ProgressKind = "success"
	ProgressWarning  ProgressKind = "warning"
	ProgressError    ProgressKind = "error"
	ProgressDownload ProgressKind = "download"
	ProgressComplete ProgressKind = "complete"
)

// RunStats are the cumulative counters for one batch run. They are owned by
// the orchestrating loop and passed by value on every event; no pipeline
// component mutates them.
type RunStats struct {
	Downloaded         int `json:"total_downloaded"`
	CompaniesProcessed int `json:"companies_processed"`
	TotalCompanies     int `json:"total_companies"`
}

// SuccessRate returns downloaded files per processed company as a percentage
// of the expected per-company document count.
func (s RunStats) SuccessRate(expectedPerCompany int) float64 {
	if s.CompaniesProcessed == 0 || expectedPerCompany == 0 {
		return 0
	}
	return float64(s.Downloaded) / float64(s.CompaniesProcessed*expectedPerCompany) * 100
}

// ProgressEvent is one entry on the append-only progress stream.
type ProgressEvent struct {
	Kind      ProgressKind `json:"type"`
	Message   string       `json:"message"`
	Symbol    string       `json:"symbol,omitempty"`
	Stats     RunStats     `json:"stats"`
	Timestamp time.Time    `json:"timestamp"`
}
