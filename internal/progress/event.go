// Package progress defines the event stream emitted by scrape cycles.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageCycleStart  Stage = "CYCLE_START"
	StageCycleDone   Stage = "CYCLE_DONE"
	StageCycleError  Stage = "CYCLE_ERROR"
	StageCenterStart Stage = "CENTER_START"
	StageCenterDone  Stage = "CENTER_DONE"
	StageCenterError Stage = "CENTER_ERROR"
)

// Event captures a single milestone of scrape progress.
type Event struct {
	// CycleID uniquely identifies a scrape cycle using the 16-byte UUID form.
	CycleID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Center scopes center events to a dispatch center code.
	Center string
	// State is the center's two-letter state, used as a metric label.
	State string
	// Rows carries the number of grid rows harvested for a center.
	Rows int64
	// Incidents carries the number of incident rows written.
	Incidents int64
	// Counters holds the full cycle tally on cycle completion events.
	Counters wildweb.CycleCounters
	// Dur captures execution latency for center harvests and cycles.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.CycleID == [16]byte{} {
		return errors.New("cycle id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageCycleStart, StageCycleDone, StageCycleError:
	case StageCenterStart, StageCenterDone, StageCenterError:
		if e.Center == "" {
			return fmt.Errorf("%s requires a center code", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// CycleUUID converts the binary cycle ID to uuid.UUID for repositories.
func (e Event) CycleUUID() uuid.UUID {
	return uuid.UUID(e.CycleID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
