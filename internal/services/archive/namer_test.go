package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/period"
)

func TestFileName(t *testing.T) {
	n := Namer{CurrentFiscalYear: 2025}

	tests := []struct {
		name  string
		doc   models.SelectedDocument
		index int
		want  string
	}{
		{
			name: "quarter transcript",
			doc: models.SelectedDocument{
				Title:    "Q1 FY2024 Earnings Call Transcript",
				URL:      "https://files.example.com/q1.pdf",
				Category: models.CategoryTranscript,
				Period:   period.Parse("Q1 FY2024"),
			},
			want: "TCS_Q1-FY2024_transcript.pdf",
		},
		{
			name: "month presentation keeps resolved kind",
			doc: models.SelectedDocument{
				Title:    "Feb 2024 Presentation",
				URL:      "https://host/Fileopen.aspx?Pname=deck",
				Category: models.CategoryPresentation,
				Period:   period.Parse("Feb 2024"),
				Resolved: models.ResolvedResource{Kind: models.KindPPT},
			},
			want: "TCS_Feb-2024_presentation.ppt",
		},
		{
			name: "annual report",
			doc: models.SelectedDocument{
				Title:    "Financial Year 2023 from bse",
				URL:      "https://files.example.com/ar.pdf",
				Category: models.CategoryAnnualReport,
				Period:   period.Parse("Financial Year 2023"),
			},
			want: "TCS_FY2023_annual_report.pdf",
		},
		{
			name: "undated annual report synthesizes fiscal year",
			doc: models.SelectedDocument{
				Title:    "Latest annual report",
				URL:      "https://files.example.com/latest.pdf",
				Category: models.CategoryAnnualReport,
			},
			index: 1,
			want:  "TCS_FY2024_annual_report.pdf",
		},
		{
			name: "undated concall gets placeholder",
			doc: models.SelectedDocument{
				Title:    "Call recording",
				URL:      "https://files.example.com/rec.pdf",
				Category: models.CategoryRecording,
			},
			index: 2,
			want:  "TCS_doc-3_recording.pdf",
		},
		{
			name: "category inferred from title",
			doc: models.SelectedDocument{
				Title: "Q2 FY2024 Transcript",
				URL:   "https://files.example.com/x.pdf",
			},
			want: "TCS_Q2-FY2024_transcript.pdf",
		},
		{
			name: "no category signal",
			doc: models.SelectedDocument{
				Title: "Q2 FY2024 filing",
				URL:   "https://files.example.com/x.bin",
			},
			want: "TCS_Q2-FY2024_document.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.FileName("tcs", tt.doc, tt.index)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileNameIsDeterministic(t *testing.T) {
	n := Namer{CurrentFiscalYear: 2025}
	doc := models.SelectedDocument{
		Title:    "Q1 FY2024 Transcript",
		URL:      "https://files.example.com/q1.pdf",
		Category: models.CategoryTranscript,
		Period:   period.Parse("Q1 FY2024"),
	}

	first := n.FileName("TCS", doc, 0)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, n.FileName("TCS", doc, 0))
	}
}

func TestFileNameSanitizesHostileCharacters(t *testing.T) {
	n := Namer{CurrentFiscalYear: 2025}
	doc := models.SelectedDocument{
		Title:    `Weird <title>: "Q1/FY24"?`,
		URL:      "https://files.example.com/x.pdf",
		Category: models.CategoryTranscript,
		Period:   models.PeriodKey{Label: `Q1\FY24`},
	}

	got := n.FileName("TCS", doc, 0)
	for _, r := range `<>:"/\|?*` {
		assert.NotContains(t, got, string(r))
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	h, err := OpenHistory(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)
	defer h.Close()

	key := models.HistoryKey("TCS", "TCS_Q1-FY2024_transcript.pdf")

	seen, err := h.Seen(key)
	require.NoError(t, err)
	assert.False(t, seen)

	err = h.Record(models.ArchiveRecord{
		Symbol:      "TCS",
		FileName:    "TCS_Q1-FY2024_transcript.pdf",
		URL:         "https://files.example.com/q1.pdf",
		Category:    models.CategoryTranscript,
		PeriodLabel: "Q1 FY2024",
		Size:        1024,
	})
	require.NoError(t, err)

	seen, err = h.Seen(key)
	require.NoError(t, err)
	assert.True(t, seen)

	recs, err := h.BySymbol("TCS")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, key, recs[0].Key)
	assert.False(t, recs[0].DownloadedAt.IsZero())

	other, err := h.BySymbol("INFY")
	require.NoError(t, err)
	assert.Empty(t, other)
}
