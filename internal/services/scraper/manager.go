package scraper

import (
	"context"
	"errors"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// ErrRunActive is returned when a run is requested while one is going.
var ErrRunActive = errors.New("a run is already active")

// Manager serialises archive runs: at most one is active at a time. It is
// the seam between the HTTP surface (start/stop/status) and the pipeline.
type Manager struct {
	service *Service
	logger  arbor.ILogger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	lastStats models.RunStats
	lastErr   error
}

func NewManager(service *Service, logger arbor.ILogger) *Manager {
	return &Manager{
		service: service,
		logger:  logger,
	}
}

// Start launches a run in the background. It fails fast with ErrRunActive
// when one is already going.
func (m *Manager) Start(req RunRequest, sink interfaces.ProgressSink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrRunActive
	}
	if len(req.Symbols) == 0 {
		return errors.New("no symbols requested")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel

	common.SafeGo(m.logger, "archive-run", func() {
		defer cancel()
		defer func() {
			// Runs even when the pipeline panics, so the manager never
			// wedges in the running state.
			m.mu.Lock()
			m.running = false
			m.cancel = nil
			m.mu.Unlock()
		}()

		stats, err := m.service.Run(ctx, req, m.trackingSink(sink))

		m.mu.Lock()
		m.lastStats = stats
		m.lastErr = err
		m.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error().Err(err).Msg("Archive run failed")
		}
	})

	return nil
}

// Stop cancels the active run. It reports whether there was one to cancel.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || m.cancel == nil {
		return false
	}
	m.cancel()
	return true
}

// Status returns whether a run is active, the most recent stats snapshot,
// and the error from the last completed run, if any.
func (m *Manager) Status() (bool, models.RunStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running, m.lastStats, m.lastErr
}

// trackingSink tees progress events into the manager's stats snapshot so
// status queries see live counters mid-run.
func (m *Manager) trackingSink(next interfaces.ProgressSink) interfaces.ProgressSink {
	return sinkFunc(func(event models.ProgressEvent) {
		m.mu.Lock()
		m.lastStats = event.Stats
		m.mu.Unlock()
		if next != nil {
			next.Publish(event)
		}
	})
}

type sinkFunc func(models.ProgressEvent)

func (f sinkFunc) Publish(event models.ProgressEvent) { f(event) }
