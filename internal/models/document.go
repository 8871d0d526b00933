package models

import (
	"strings"
	"time"
)

// DocumentCategory tags a discovered disclosure link.
type DocumentCategory string

const (
	CategoryTranscript   DocumentCategory = "transcript"
	CategoryPresentation DocumentCategory = "presentation"
	CategoryRecording    DocumentCategory = "recording"
	CategoryConcall      DocumentCategory = "concall" // concall-related but untyped
	CategoryAnnualReport DocumentCategory = "annual_report"
)

// IsConcall reports whether the category belongs to the concall family and
// therefore participates in per-period grouping.
func (c DocumentCategory) IsConcall() bool {
	switch c {
	case CategoryTranscript, CategoryPresentation, CategoryRecording, CategoryConcall:
		return true
	}
	return false
}

// ConcallPriority returns the download preference inside a period group.
// Lower is tried first.
func (c DocumentCategory) ConcallPriority() int {
	switch c {
	case CategoryTranscript:
		return 1
	case CategoryPresentation:
		return 2
	case CategoryRecording:
		return 3
	default:
		return 4
	}
}

// ContentKind identifies the binary type of a resolved document.
type ContentKind string

const (
	KindPDF     ContentKind = "pdf"
	KindPPT     ContentKind = "ppt"
	KindDoc     ContentKind = "doc"
	KindUnknown ContentKind = "unknown"
)

// Extension returns the file extension for the kind, defaulting to pdf.
func (k ContentKind) Extension() string {
	switch k {
	case KindPPT:
		return "ppt"
	case KindDoc:
		return "doc"
	default:
		return "pdf"
	}
}

// KindFromURL derives a ContentKind from a URL's path suffix.
func KindFromURL(rawURL string) ContentKind {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, ".pdf"):
		return KindPDF
	case strings.Contains(lower, ".pptx"), strings.Contains(lower, ".ppt"):
		return KindPPT
	case strings.Contains(lower, ".docx"), strings.Contains(lower, ".doc"):
		return KindDoc
	default:
		return KindUnknown
	}
}

// DocumentCandidate is one qualifying link discovered on a company profile
// page. Candidates are immutable once classified; non-selected candidates are
// never resolved or downloaded.
type DocumentCandidate struct {
	Title    string           `json:"title"`
	URL      string           `json:"url"`
	Category DocumentCategory `json:"category"`
	Period   PeriodKey        `json:"period"`
}

// ResolvedResource is the outcome of turning an indirect or obfuscated URL
// into a directly fetchable one. Verified is true only when the fetch
// succeeded and the payload looked like the expected binary type.
type ResolvedResource struct {
	FinalURL string      `json:"final_url"`
	Kind     ContentKind `json:"kind"`
	Verified bool        `json:"verified"`
}

// SelectedDocument is the single document chosen for one reporting period
// (concalls) or one retained annual report.
type SelectedDocument struct {
	Title    string           `json:"title"`
	URL      string           `json:"url"`
	Category DocumentCategory `json:"category"`
	Period   PeriodKey        `json:"period"`
	Resolved ResolvedResource `json:"resolved"`
}

// CompanyProfile aggregates the result of processing one company. It is
// created once per request and not persisted by the pipeline itself.
type CompanyProfile struct {
	DisplayName   string             `json:"display_name"`
	Symbol        string             `json:"symbol"`
	ProfileURL    string             `json:"profile_url"`
	Concalls      []SelectedDocument `json:"concalls"`
	AnnualReports []SelectedDocument `json:"annual_reports"`
}

// ArchiveRecord is the download-history entry for one archived document.
type ArchiveRecord struct {
	Key          string           `badgerhold:"key" json:"key"` // "{symbol}/{filename}"
	Symbol       string           `json:"symbol"`
	FileName     string           `json:"file_name"`
	URL          string           `json:"url"`
	Category     DocumentCategory `json:"category"`
	PeriodLabel  string           `json:"period_label"`
	Size         int64            `json:"size"`
	DownloadedAt time.Time        `json:"downloaded_at"`
}

// HistoryKey builds the ArchiveRecord key for a symbol/filename pair.
func HistoryKey(symbol, fileName string) string {
	return symbol + "/" + fileName
}
