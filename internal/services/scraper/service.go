package scraper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/httpclient"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/archive"
	"github.com/ternarybob/colligo/internal/services/classifier"
	"github.com/ternarybob/colligo/internal/services/selection"
)

// Service orchestrates the archiving pipeline: discover, fetch, classify,
// select, resolve, download. It processes one company at a time and one
// candidate at a time; the per-period fallback decision needs each outcome
// before the next attempt.
type Service struct {
	config     *common.Config
	logger     arbor.ILogger
	client     *httpclient.Client
	classifier *classifier.Classifier
	resolver   interfaces.DocumentResolver
	history    interfaces.HistoryStore
	namer      archive.Namer
}

func NewService(
	config *common.Config,
	logger arbor.ILogger,
	client *httpclient.Client,
	cls *classifier.Classifier,
	resolver interfaces.DocumentResolver,
	history interfaces.HistoryStore,
) *Service {
	return &Service{
		config:     config,
		logger:     logger,
		client:     client,
		classifier: cls,
		resolver:   resolver,
		history:    history,
		namer:      archive.Namer{},
	}
}

// RunRequest describes one batch run.
type RunRequest struct {
	Symbols []string `json:"symbols"`
	// Types restricts which document categories are archived. Empty means
	// all of them.
	Types []models.DocumentCategory `json:"types,omitempty"`
	// CompanyDelay is an extra pause between companies on top of the
	// per-request politeness delay.
	CompanyDelay time.Duration `json:"company_delay,omitempty"`
}

func (r RunRequest) wants(cat models.DocumentCategory) bool {
	if len(r.Types) == 0 {
		return true
	}
	for _, t := range r.Types {
		if t == cat {
			return true
		}
	}
	return false
}

// Run processes every requested symbol in order. Per-company failures are
// reported and skipped; only context cancellation stops the run early.
func (s *Service) Run(ctx context.Context, req RunRequest, sink interfaces.ProgressSink) (models.RunStats, error) {
	runID := uuid.New().String()
	stats := models.RunStats{TotalCompanies: len(req.Symbols)}

	s.logger.Info().
		Str("run_id", runID).
		Int("companies", len(req.Symbols)).
		Msg("Starting archive run")
	publish(sink, models.ProgressStatus, fmt.Sprintf("Starting run for %d companies", len(req.Symbols)), "", stats)

	for i, symbol := range req.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			publish(sink, models.ProgressWarning, "Run stopped", symbol, stats)
			return stats, err
		}

		profile, err := s.ProcessCompany(ctx, symbol, req, sink, &stats)
		if err != nil {
			if ctx.Err() != nil {
				publish(sink, models.ProgressWarning, "Run stopped", symbol, stats)
				return stats, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Company failed, continuing")
			publish(sink, models.ProgressError, fmt.Sprintf("%s: %v", symbol, err), symbol, stats)
			stats.CompaniesProcessed++
			continue
		}

		stats.CompaniesProcessed++
		publish(sink, models.ProgressSuccess,
			fmt.Sprintf("%s: archived %d concalls, %d annual reports",
				profile.DisplayName, len(profile.Concalls), len(profile.AnnualReports)),
			symbol, stats)

		if req.CompanyDelay > 0 && i < len(req.Symbols)-1 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(req.CompanyDelay):
			}
		}
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("downloaded", stats.Downloaded).
		Int("companies", stats.CompaniesProcessed).
		Msg("Archive run complete")
	publish(sink, models.ProgressComplete,
		fmt.Sprintf("Run complete: %d files across %d companies", stats.Downloaded, stats.CompaniesProcessed),
		"", stats)

	return stats, nil
}

// ProcessCompany archives one company's documents.
func (s *Service) ProcessCompany(ctx context.Context, symbol string, req RunRequest, sink interfaces.ProgressSink, stats *models.RunStats) (*models.CompanyProfile, error) {
	publish(sink, models.ProgressInfo, "Looking up company", symbol, *stats)

	page, err := s.findCompany(ctx, symbol)
	if err != nil {
		return nil, err
	}

	candidates, err := s.classifier.Classify(page.ProfileURL, page.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to classify %s: %w", page.ProfileURL, err)
	}

	s.logger.Info().
		Str("symbol", symbol).
		Str("company", page.DisplayName).
		Int("candidates", len(candidates)).
		Msg("Profile page classified")

	profile := &models.CompanyProfile{
		DisplayName: page.DisplayName,
		Symbol:      symbol,
		ProfileURL:  page.ProfileURL,
	}

	groups := selection.SelectConcalls(candidates, s.config.Selection.MaxConcallPeriods)
	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return profile, err
		}
		doc, ok := s.archivePeriod(ctx, symbol, group, i, req, sink, stats)
		if ok {
			profile.Concalls = append(profile.Concalls, doc)
		}
	}

	reports := selection.SelectAnnualReports(candidates, s.config.Selection.MaxAnnualReports)
	for i, cand := range reports {
		if err := ctx.Err(); err != nil {
			return profile, err
		}
		if !req.wants(models.CategoryAnnualReport) {
			break
		}
		doc, ok := s.archiveCandidate(ctx, symbol, cand, i, sink, stats)
		if ok {
			profile.AnnualReports = append(profile.AnnualReports, doc)
		}
	}

	return profile, nil
}

// archivePeriod walks one period group in priority order and keeps the first
// member that makes it to disk. A failed presentation abandons the whole
// period; lower-priority members are not tried after one.
func (s *Service) archivePeriod(ctx context.Context, symbol string, group selection.PeriodGroup, index int, req RunRequest, sink interfaces.ProgressSink, stats *models.RunStats) (models.SelectedDocument, bool) {
	for _, cand := range group.Candidates {
		if ctx.Err() != nil {
			return models.SelectedDocument{}, false
		}
		if !req.wants(cand.Category) {
			continue
		}

		doc, ok := s.archiveCandidate(ctx, symbol, cand, index, sink, stats)
		if ok {
			return doc, true
		}
		if cand.Category == models.CategoryPresentation {
			s.logger.Warn().
				Str("symbol", symbol).
				Str("period", group.Period.Label).
				Msg("Presentation failed, abandoning period")
			publish(sink, models.ProgressWarning,
				fmt.Sprintf("Giving up on %s after failed presentation", group.Period.Label),
				symbol, *stats)
			return models.SelectedDocument{}, false
		}
	}
	return models.SelectedDocument{}, false
}

// archiveCandidate resolves, downloads and records one candidate. Every
// failure path returns false so the caller can apply its fallback rule.
func (s *Service) archiveCandidate(ctx context.Context, symbol string, cand models.DocumentCandidate, index int, sink interfaces.ProgressSink, stats *models.RunStats) (models.SelectedDocument, bool) {
	doc := models.SelectedDocument{
		Title:    cand.Title,
		URL:      cand.URL,
		Category: cand.Category,
		Period:   cand.Period,
	}

	fileName := s.namer.FileName(symbol, doc, index)
	// Resolution can change the extension, so the history key is the name
	// stem, which only depends on symbol, period and category.
	historyKey := models.HistoryKey(symbol, strings.TrimSuffix(fileName, filepath.Ext(fileName)))
	seen, err := s.history.Seen(historyKey)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", fileName).Msg("History lookup failed")
	}
	if seen {
		s.logger.Debug().Str("symbol", symbol).Str("file", fileName).Msg("Already archived, skipping")
		publish(sink, models.ProgressInfo, fmt.Sprintf("Skipping %s (already archived)", fileName), symbol, *stats)
		return doc, true
	}

	resolved, err := s.resolver.Resolve(ctx, cand.URL, models.KindFromURL(cand.URL))
	if err != nil {
		s.logger.Warn().Err(err).Str("url", cand.URL).Msg("Resolution failed")
		return models.SelectedDocument{}, false
	}
	doc.Resolved = resolved

	// Name after resolving so the archived file carries the real extension.
	fileName = s.namer.FileName(symbol, doc, index)
	destPath := filepath.Join(s.config.Archive.Dir, symbol, fileName)

	size, err := s.client.Download(ctx, resolved.FinalURL, destPath)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", resolved.FinalURL).Msg("Download failed")
		return models.SelectedDocument{}, false
	}

	if err := s.validateArtifact(destPath, resolved.Kind); err != nil {
		s.logger.Warn().Err(err).Str("file", destPath).Msg("Downloaded file failed validation, removing")
		os.Remove(destPath)
		return models.SelectedDocument{}, false
	}

	if err := s.history.Record(models.ArchiveRecord{
		Key:         historyKey,
		Symbol:      symbol,
		FileName:    fileName,
		URL:         resolved.FinalURL,
		Category:    cand.Category,
		PeriodLabel: cand.Period.Label,
		Size:        size,
	}); err != nil {
		s.logger.Warn().Err(err).Str("file", fileName).Msg("Failed to record download history")
	}

	stats.Downloaded++
	publish(sink, models.ProgressDownload, fmt.Sprintf("Downloaded %s", fileName), symbol, *stats)

	return doc, true
}

// validateArtifact checks the persisted file is structurally what the wire
// signature promised. Only PDFs have a cheap structural check.
func (s *Service) validateArtifact(path string, kind models.ContentKind) error {
	if !s.config.Archive.ValidatePDF || kind != models.KindPDF {
		return nil
	}
	if err := api.ValidateFile(path, nil); err != nil {
		return fmt.Errorf("pdf validation failed: %w", err)
	}
	return nil
}

func publish(sink interfaces.ProgressSink, kind models.ProgressKind, message, symbol string, stats models.RunStats) {
	if sink == nil {
		return
	}
	sink.Publish(models.ProgressEvent{
		Kind:      kind,
		Message:   message,
		Symbol:    symbol,
		Stats:     stats,
		Timestamp: time.Now(),
	})
}
