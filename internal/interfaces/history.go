package interfaces

import "github.com/ternarybob/colligo/internal/models"

// HistoryStore records which documents have already been archived so that
// repeat runs skip them.
type HistoryStore interface {
	// Seen reports whether a record exists for the key (models.HistoryKey).
	Seen(key string) (bool, error)

	// Record stores the outcome of one archived document.
	Record(rec models.ArchiveRecord) error

	// BySymbol returns all records for one company symbol.
	BySymbol(symbol string) ([]models.ArchiveRecord, error)

	Close() error
}
