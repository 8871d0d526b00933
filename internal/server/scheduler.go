package server

import (
	"errors"

	"github.com/robfig/cron/v3"

	"github.com/ternarybob/colligo/internal/app"
	"github.com/ternarybob/colligo/internal/services/scraper"
)

// scheduler starts unattended archive runs on a cron expression. It is
// inert when no schedule is configured.
type scheduler struct {
	app  *app.App
	cron *cron.Cron
}

func newScheduler(application *app.App) *scheduler {
	return &scheduler{app: application}
}

func (s *scheduler) start() {
	cfg := s.app.Config.Schedule
	if cfg.Cron == "" {
		return
	}
	if len(cfg.Symbols) == 0 {
		s.app.Logger.Warn().Msg("Schedule configured without symbols, ignoring")
		return
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(cfg.Cron, func() {
		err := s.app.Manager.Start(scraper.RunRequest{Symbols: cfg.Symbols}, s.app.WSHandler)
		if errors.Is(err, scraper.ErrRunActive) {
			s.app.Logger.Warn().Msg("Scheduled run skipped, previous run still active")
			return
		}
		if err != nil {
			s.app.Logger.Error().Err(err).Msg("Scheduled run failed to start")
			return
		}
		s.app.Logger.Info().
			Int("symbols", len(cfg.Symbols)).
			Msg("Scheduled archive run started")
	})
	if err != nil {
		s.app.Logger.Error().Err(err).Str("cron", cfg.Cron).Msg("Invalid schedule expression")
		s.cron = nil
		return
	}

	s.cron.Start()
	s.app.Logger.Info().Str("cron", cfg.Cron).Msg("Run scheduler started")
}

func (s *scheduler) stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
