package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/httpclient"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/archive"
	"github.com/ternarybob/colligo/internal/services/classifier"
	"github.com/ternarybob/colligo/internal/services/resolver"
)

var pdfPayload = []byte("%PDF-1.7\nfixture\n%%EOF")

var pptxPayload = []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00}

type testSink struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (s *testSink) Publish(e models.ProgressEvent) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *testSink) byKind(kind models.ProgressKind) []models.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProgressEvent
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// newFixtureSite simulates both the profile site and the filing host on one
// server. TEST's profile has three concall periods and one annual report;
// the Aug 2023 period is built so that its transcript 404s, its presentation
// resolves to nothing but HTML, and its recording would succeed if tried.
func newFixtureSite(t *testing.T) *httptest.Server {
	t.Helper()

	var srvURL string
	mux := http.NewServeMux()

	mux.HandleFunc("/company/TEST/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<h1>Test Company Ltd</h1>
<ul class="annual-reports">
  <li><a href="%s/bseplus/ar2024.pdf">Financial Year 2024 from bse</a></li>
</ul>
<ul class="concalls">
  <li><span>Feb 2024</span><a href="/files/transcript-feb24.pdf">Transcript</a></li>
  <li><span>Nov 2023</span><a href="/Fileopen.aspx?Pname=decks\nov23.pptx">PPT</a></li>
  <li>
    <span>Aug 2023</span>
    <a href="/files/missing.pdf">Transcript</a>
    <a href="/files/viewer-only.pdf">PPT</a>
    <a href="/files/rec-aug23.pdf">REC</a>
  </li>
</ul>
</body></html>`, srvURL)
	})

	mux.HandleFunc("/company/FOUND/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Found Company Ltd</h1></body></html>`)
	})
	mux.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><ul>
<li><a href="/company/FOUND/">Found Company Ltd</a></li>
</ul></body></html>`)
	})

	mux.HandleFunc("/files/transcript-feb24.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfPayload)
	})
	mux.HandleFunc("/files/rec-aug23.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfPayload)
	})
	mux.HandleFunc("/files/viewer-only.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>login required</body></html>"))
	})
	mux.HandleFunc("/bseplus/ar2024.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfPayload)
	})
	mux.HandleFunc("/xml-data/corpfiling/AttachLive/decks/nov23.pptx", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pptxPayload)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	srvURL = srv.URL
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, srv *httptest.Server, history *archive.History) (*Service, string) {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cfg := common.NewDefaultConfig()
	cfg.Sites.ProfileBaseURL = srv.URL
	cfg.Sites.FilingHost = u.Hostname()
	cfg.Crawler.RequestDelay = 0
	cfg.Resolver.AttachmentTemplates = []string{
		srv.URL + "/xml-data/corpfiling/AttachLive/%s",
		srv.URL + "/xml-data/corpfiling/AttachHis/%s",
	}
	cfg.Archive.Dir = t.TempDir()
	cfg.Archive.ValidatePDF = false // fixtures are not structurally valid PDFs

	logger := arbor.NewLogger()
	client, err := httpclient.New(cfg.Crawler, logger)
	require.NoError(t, err)

	var store interfaces.HistoryStore = archive.NoopHistory{}
	if history != nil {
		store = history
	}

	svc := NewService(cfg, logger, client,
		classifier.New(cfg, logger),
		resolver.New(cfg, client, logger),
		store,
	)
	return svc, cfg.Archive.Dir
}

func TestRunArchivesCompany(t *testing.T) {
	srv := newFixtureSite(t)
	svc, dir := newTestService(t, srv, nil)
	sink := &testSink{}

	stats, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"test"}}, sink)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Downloaded)
	assert.Equal(t, 1, stats.CompaniesProcessed)
	assert.Equal(t, 1, stats.TotalCompanies)

	for _, want := range []string{
		"TEST/TEST_Feb-2024_transcript.pdf",
		"TEST/TEST_Nov-2023_presentation.ppt",
		"TEST/TEST_FY2024_annual_report.pdf",
	} {
		_, err := os.Stat(filepath.Join(dir, want))
		assert.NoError(t, err, "expected archived file %s", want)
	}

	// The Aug 2023 period must be abandoned after its presentation failed;
	// the recording was reachable but must never be fetched.
	_, err = os.Stat(filepath.Join(dir, "TEST", "TEST_Aug-2023_recording.pdf"))
	assert.True(t, os.IsNotExist(err), "recording downloaded despite abandoned period")

	warnings := sink.byKind(models.ProgressWarning)
	require.NotEmpty(t, warnings, "expected a warning for the abandoned period")
	assert.Contains(t, warnings[0].Message, "Aug-2023")

	completes := sink.byKind(models.ProgressComplete)
	require.Len(t, completes, 1)
	assert.Equal(t, 3, completes[0].Stats.Downloaded)
}

func TestRunFallsBackToSearch(t *testing.T) {
	srv := newFixtureSite(t)
	svc, _ := newTestService(t, srv, nil)

	profile, err := svc.ProcessCompany(context.Background(), "UNKNOWN", RunRequest{}, nil, &models.RunStats{})
	require.NoError(t, err)
	assert.Equal(t, "Found Company Ltd", profile.DisplayName)
	assert.Contains(t, profile.ProfileURL, "/company/FOUND/")
}

func TestRunSkipsFailedCompanies(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	svc, _ := newTestService(t, srv, nil)
	sink := &testSink{}

	stats, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"NOPE"}}, sink)
	require.NoError(t, err, "per-company failures must not fail the run")
	assert.Equal(t, 0, stats.Downloaded)
	assert.Equal(t, 1, stats.CompaniesProcessed)
	assert.NotEmpty(t, sink.byKind(models.ProgressError))
}

func TestRunHonorsTypeFilter(t *testing.T) {
	srv := newFixtureSite(t)
	svc, dir := newTestService(t, srv, nil)

	stats, err := svc.Run(context.Background(), RunRequest{
		Symbols: []string{"TEST"},
		Types:   []models.DocumentCategory{models.CategoryTranscript},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Downloaded)
	_, err = os.Stat(filepath.Join(dir, "TEST", "TEST_Feb-2024_transcript.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "TEST", "TEST_FY2024_annual_report.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSkipsAlreadyArchived(t *testing.T) {
	srv := newFixtureSite(t)
	history, err := archive.OpenHistory(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)
	defer history.Close()

	svc, _ := newTestService(t, srv, history)

	first, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"TEST"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Downloaded)

	second, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"TEST"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Downloaded, "repeat run must skip recorded downloads")
}

func TestRunSkipsWhenResolvedExtensionDiffers(t *testing.T) {
	// The viewer URL carries no extension hint, so the first run guesses pdf
	// before resolving and archives a doc. The repeat run must still match
	// the history record.
	docPayload := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1}

	mux := http.NewServeMux()
	mux.HandleFunc("/company/EXT/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<h1>Ext Company Ltd</h1>
<ul class="concalls">
  <li><span>Mar 2024</span><a href="/Fileopen.aspx?Pname=docs\mar24-note">Transcript</a></li>
</ul>
</body></html>`)
	})
	mux.HandleFunc("/xml-data/corpfiling/AttachLive/docs/mar24-note", func(w http.ResponseWriter, r *http.Request) {
		w.Write(docPayload)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	history, err := archive.OpenHistory(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)
	defer history.Close()

	svc, dir := newTestService(t, srv, history)

	first, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"EXT"}}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, first.Downloaded)
	_, err = os.Stat(filepath.Join(dir, "EXT", "EXT_Mar-2024_transcript.doc"))
	require.NoError(t, err)

	second, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"EXT"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Downloaded, "extension drift must not defeat the history skip")
}

func TestRunStopsOnCancellation(t *testing.T) {
	srv := newFixtureSite(t)
	svc, _ := newTestService(t, srv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, RunRequest{Symbols: []string{"TEST"}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
