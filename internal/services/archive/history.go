package archive

import (
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// History is the badger-backed download history. A record per archived file
// lets repeat runs skip documents they already hold even when the file on
// disk was moved away.
type History struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// OpenHistory opens (or creates) the history store at path.
func OpenHistory(path string, logger arbor.ILogger) (*History, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // arbor handles logging

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Download history opened")

	return &History{
		store:  store,
		logger: logger,
	}, nil
}

func (h *History) Seen(key string) (bool, error) {
	var rec models.ArchiveRecord
	err := h.store.Get(key, &rec)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up history record: %w", err)
	}
	return true, nil
}

func (h *History) Record(rec models.ArchiveRecord) error {
	if rec.Key == "" {
		rec.Key = models.HistoryKey(rec.Symbol, rec.FileName)
	}
	if rec.DownloadedAt.IsZero() {
		rec.DownloadedAt = time.Now()
	}
	if err := h.store.Upsert(rec.Key, &rec); err != nil {
		return fmt.Errorf("failed to save history record: %w", err)
	}
	return nil
}

func (h *History) BySymbol(symbol string) ([]models.ArchiveRecord, error) {
	var recs []models.ArchiveRecord
	if err := h.store.Find(&recs, badgerhold.Where("Symbol").Eq(symbol)); err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", symbol, err)
	}
	return recs, nil
}

func (h *History) Close() error {
	return h.store.Close()
}

// NoopHistory satisfies the history interface when persistence is disabled.
// Nothing is remembered, so every document is downloaded again.
type NoopHistory struct{}

func (NoopHistory) Seen(string) (bool, error)                       { return false, nil }
func (NoopHistory) Record(models.ArchiveRecord) error               { return nil }
func (NoopHistory) BySymbol(string) ([]models.ArchiveRecord, error) { return nil, nil }
func (NoopHistory) Close() error                                    { return nil }

var (
	_ interfaces.HistoryStore = (*History)(nil)
	_ interfaces.HistoryStore = NoopHistory{}
)
