package wildweb

import (
	"context"
	"time"
)

// Store persists centers, incidents, and cycle audit rows.
type Store interface {
	UpsertCenters(ctx context.Context, centers []DispatchCenter) error
	UpsertIncidents(ctx context.Context, incidents []Incident) (int, error)
	ListCenters(ctx context.Context) ([]DispatchCenter, error)
	IncidentHistory(ctx context.Context, incidentID string) ([]Incident, error)
	StateSummary(ctx context.Context) ([]StateCount, error)
	RecordCycle(ctx context.Context, record CycleRecord) error
	LatestCycle(ctx context.Context) (CycleRecord, error)
}

// PageFetcher retrieves a URL over plain HTTP and returns the body plus metadata.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// GridHarvester drives a browser through a virtually scrolled data grid and
// returns every row it managed to surface.
type GridHarvester interface {
	Harvest(ctx context.Context, url string) (GridResult, error)
}

// SnapshotStore archives raw artifacts and returns a URI.
type SnapshotStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// RetryPolicy decides whether a failed center harvest is worth another attempt.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Hasher computes digests for change detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces occurrence IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
