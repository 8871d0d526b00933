package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// DocumentResolver turns an indirect or obfuscated document URL into a
// directly fetchable resource. A resolver reports failure only after its
// bounded strategy list is exhausted; failure is a per-document condition,
// never fatal to a run.
type DocumentResolver interface {
	Resolve(ctx context.Context, rawURL string, want models.ContentKind) (models.ResolvedResource, error)
}
