package scraper

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
)

// newSlowFixture serves the TEST profile with an artificial delay so a run
// stays active long enough for concurrency assertions.
func newSlowFixture(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		if r.URL.Path == "/company/TEST/" {
			w.Write([]byte(`<html><body><h1>Test Company Ltd</h1></body></html>`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T, srv *httptest.Server) *Manager {
	t.Helper()
	svc, _ := newTestService(t, srv, nil)
	return NewManager(svc, arbor.NewLogger())
}

func TestManagerRejectsConcurrentRuns(t *testing.T) {
	m := newTestManager(t, newSlowFixture(t))

	require.NoError(t, m.Start(RunRequest{Symbols: []string{"TEST"}}, nil))
	err := m.Start(RunRequest{Symbols: []string{"TEST"}}, nil)
	assert.ErrorIs(t, err, ErrRunActive)

	m.Stop()
	require.Eventually(t, func() bool {
		running, _, _ := m.Status()
		return !running
	}, 5*time.Second, 20*time.Millisecond)
}

func TestManagerRejectsEmptyRequest(t *testing.T) {
	m := newTestManager(t, newSlowFixture(t))
	assert.Error(t, m.Start(RunRequest{}, nil))
}

func TestManagerStopWithoutRun(t *testing.T) {
	m := newTestManager(t, newSlowFixture(t))
	assert.False(t, m.Stop())
}

func TestManagerRunsToCompletion(t *testing.T) {
	srv := newFixtureSite(t)
	m := newTestManager(t, srv)
	sink := &testSink{}

	require.NoError(t, m.Start(RunRequest{Symbols: []string{"TEST"}}, sink))

	require.Eventually(t, func() bool {
		running, _, _ := m.Status()
		return !running
	}, 10*time.Second, 20*time.Millisecond)

	_, stats, _ := m.Status()
	assert.Equal(t, 3, stats.Downloaded)
	assert.Equal(t, 1, stats.CompaniesProcessed)
	assert.NotEmpty(t, sink.byKind(models.ProgressComplete))
}
