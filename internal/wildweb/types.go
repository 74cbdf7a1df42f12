// Package wildweb defines core types shared across subsystems.
package wildweb

import (
	"net/http"
	"time"
)

// DispatchCenter is one WildWeb dispatch center from the index page.
type DispatchCenter struct {
	ID          string    `json:"id"`
	Code        string    `json:"center_code"`
	Name        string    `json:"center_name"`
	State       string    `json:"state"`
	Status      string    `json:"status"`
	URL         string    `json:"url"`
	LastUpdated time.Time `json:"last_updated"`
}

// Incident is one observed occurrence of a wildfire incident. ID is unique
// per scrape occurrence; IncidentID is deterministic so the same incident
// maps to the same row across cycles and gets updated in place.
type Incident struct {
	ID         string     `json:"id"`
	IncidentID string     `json:"incident_id"`
	CenterID   string     `json:"center_id"`
	Number     string     `json:"incident_number"`
	Fiscal     string     `json:"fiscal"`
	Name       string     `json:"incident_name"`
	Type       string     `json:"incident_type"`
	Status     string     `json:"incident_status"`
	LocalDate  *time.Time `json:"local_date,omitempty"`
	Location   string     `json:"location"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Resources  string     `json:"resources"`
	Acres      *float64   `json:"acres,omitempty"`
	Comments   string     `json:"comments"`
	RawData    string     `json:"raw_data"`
	RawHash    string     `json:"raw_hash"`
	IngestedAt time.Time  `json:"ingest_date"`
}

// CycleStatus represents the lifecycle state of a scrape cycle.
type CycleStatus string

// Cycle status values persisted in the cycle audit table.
const (
	CycleStatusRunning   CycleStatus = "running"
	CycleStatusSucceeded CycleStatus = "succeeded"
	CycleStatusFailed    CycleStatus = "failed"
	CycleStatusCanceled  CycleStatus = "canceled"
)

// CycleCounters tracks success/failure stats per scrape cycle.
type CycleCounters struct {
	CentersFound   int `json:"centers_found"`
	CentersScraped int `json:"centers_scraped"`
	CentersFailed  int `json:"centers_failed"`
	IncidentsSaved int `json:"incidents_saved"`
	Retries        int `json:"retries"`
}

// CycleRecord is the audit row persisted for each scrape cycle.
type CycleRecord struct {
	ID        string        `json:"id"`
	Started   time.Time     `json:"started_at"`
	Finished  *time.Time    `json:"finished_at,omitempty"`
	Status    CycleStatus   `json:"status"`
	Counters  CycleCounters `json:"counters"`
	ErrorText string        `json:"error_text,omitempty"`
}

// FetchResponse is the result of a plain HTTP page fetch.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// GridRow is one visible data-grid row keyed by its virtual row index,
// with cell text already mapped to field names.
type GridRow struct {
	Index  int
	Fields map[string]string
}

// GridResult is the outcome of harvesting one center's incidents grid.
// Processed and Target drive the caller's completeness check; HTML is the
// final rendered DOM for snapshotting.
type GridResult struct {
	Rows       []GridRow
	Processed  int
	Target     int
	StatusCode int
	HTML       []byte
	Duration   time.Duration
}

// StateCount is one row of the centers-per-state summary.
type StateCount struct {
	State   string `json:"state"`
	Centers int    `json:"centers"`
}
