package interfaces

import "github.com/ternarybob/colligo/internal/models"

// ProgressSink receives the append-only progress stream of a run. Publish
// must not block the pipeline; slow consumers drop rather than stall.
type ProgressSink interface {
	Publish(event models.ProgressEvent)
}
