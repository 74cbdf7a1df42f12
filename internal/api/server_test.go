package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/graviris/wildweb-scraper/internal/storage/sqlite"
	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

type fakeStore struct {
	centers []wildweb.DispatchCenter
	history map[string][]wildweb.Incident
	summary []wildweb.StateCount
	cycle   wildweb.CycleRecord
	cycleOK bool
	err     error
}

func (f *fakeStore) UpsertCenters(context.Context, []wildweb.DispatchCenter) error { return nil }

func (f *fakeStore) UpsertIncidents(context.Context, []wildweb.Incident) (int, error) {
	return 0, nil
}

func (f *fakeStore) ListCenters(context.Context) ([]wildweb.DispatchCenter, error) {
	return f.centers, f.err
}

func (f *fakeStore) IncidentHistory(_ context.Context, id string) ([]wildweb.Incident, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history[id], nil
}

func (f *fakeStore) StateSummary(context.Context) ([]wildweb.StateCount, error) {
	return f.summary, f.err
}

func (f *fakeStore) RecordCycle(context.Context, wildweb.CycleRecord) error { return nil }

func (f *fakeStore) LatestCycle(context.Context) (wildweb.CycleRecord, error) {
	if f.err != nil {
		return wildweb.CycleRecord{}, f.err
	}
	if !f.cycleOK {
		return wildweb.CycleRecord{}, sqlite.ErrNoCycles
	}
	return f.cycle, nil
}

func doRequest(t *testing.T, store wildweb.Store, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(store, nil)
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeStore{}, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzReflectsStore(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeStore{}, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, &fakeStore{err: errors.New("locked")}, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusWithoutCycles(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeStore{}, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Nil(t, body["cycle"])
}

func TestStatusReturnsLatestCycle(t *testing.T) {
	t.Parallel()

	finished := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{
		cycleOK: true,
		cycle: wildweb.CycleRecord{
			ID:       "cycle-1",
			Started:  finished.Add(-20 * time.Minute),
			Finished: &finished,
			Status:   wildweb.CycleStatusSucceeded,
			Counters: wildweb.CycleCounters{CentersScraped: 12, IncidentsSaved: 450},
		},
	}
	rec := doRequest(t, store, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Cycle wildweb.CycleRecord `json:"cycle"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "cycle-1", body.Cycle.ID)
	require.Equal(t, wildweb.CycleStatusSucceeded, body.Cycle.Status)
	require.Equal(t, 450, body.Cycle.Counters.IncidentsSaved)
}

func TestListCenters(t *testing.T) {
	t.Parallel()

	store := &fakeStore{centers: []wildweb.DispatchCenter{
		{Code: "AKACC", State: "AK"},
		{Code: "CAGVC", State: "CA"},
	}}
	rec := doRequest(t, store, http.MethodGet, "/api/v1/centers")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Centers []wildweb.DispatchCenter `json:"centers"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	require.Equal(t, "AKACC", body.Centers[0].Code)
}

func TestStateSummary(t *testing.T) {
	t.Parallel()

	store := &fakeStore{summary: []wildweb.StateCount{{State: "CA", Centers: 3}}}
	rec := doRequest(t, store, http.MethodGet, "/api/v1/states")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		States []wildweb.StateCount `json:"states"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []wildweb.StateCount{{State: "CA", Centers: 3}}, body.States)
}

func TestIncidentHistory(t *testing.T) {
	t.Parallel()

	incidentID := uuid.NewString()
	store := &fakeStore{history: map[string][]wildweb.Incident{
		incidentID: {
			{ID: "occ-1", IncidentID: incidentID, Status: "Running"},
			{ID: "occ-2", IncidentID: incidentID, Status: "Running"},
		},
	}}

	rec := doRequest(t, store, http.MethodGet, "/api/v1/incidents/"+incidentID+"/history")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		IncidentID string             `json:"incident_id"`
		History    []wildweb.Incident `json:"history"`
		Count      int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, incidentID, body.IncidentID)
	require.Equal(t, 2, body.Count)
}

func TestIncidentHistoryNotFound(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeStore{}, http.MethodGet, "/api/v1/incidents/"+uuid.NewString()+"/history")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIncidentHistoryRejectsBadID(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeStore{}, http.MethodGet, "/api/v1/incidents/not-a-uuid/history")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeStore{}, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
}
