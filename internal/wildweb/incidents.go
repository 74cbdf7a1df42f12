package wildweb

import (
	"encoding/json"
	"fmt"
)

// BuildIncidents converts harvested grid rows into incident records for one
// center. Rows with neither a number nor a name are skipped, and rows that
// collapse onto an incident identity already seen in this harvest are
// dropped (virtual scrolling re-surfaces rows).
func BuildIncidents(
	center DispatchCenter,
	rows []GridRow,
	idGen IDGenerator,
	hasher Hasher,
	clock Clock,
) ([]Incident, error) {
	seen := make(map[string]struct{}, len(rows))
	incidents := make([]Incident, 0, len(rows))

	for _, row := range rows {
		number := row.Fields[FieldIncidentNumber]
		name := row.Fields[FieldIncidentName]
		if number == "" && name == "" {
			continue
		}

		status, ok := row.Fields[FieldIncidentStatus]
		if !ok {
			status = "none"
		}
		incidentID := IncidentUUID(center.Code, number, name, status)
		if _, dup := seen[incidentID]; dup {
			continue
		}
		seen[incidentID] = struct{}{}

		occurrenceID, err := idGen.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate occurrence id: %w", err)
		}

		raw, err := json.Marshal(row.Fields)
		if err != nil {
			return nil, fmt.Errorf("marshal raw row: %w", err)
		}
		rawHash := ""
		if hasher != nil {
			if rawHash, err = hasher.Hash(raw); err != nil {
				return nil, fmt.Errorf("hash raw row: %w", err)
			}
		}

		lat, long := ParseLatLong(row.Fields[FieldLatLong])
		incidents = append(incidents, Incident{
			ID:         occurrenceID,
			IncidentID: incidentID,
			CenterID:   center.ID,
			Number:     number,
			Fiscal:     row.Fields[FieldFiscal],
			Name:       name,
			Type:       row.Fields[FieldIncidentType],
			Status:     row.Fields[FieldIncidentStatus],
			LocalDate:  ParseLocalDate(row.Fields[FieldLocalDate]),
			Location:   row.Fields[FieldLocation],
			Latitude:   lat,
			Longitude:  long,
			Resources:  row.Fields[FieldResources],
			Acres:      ParseAcres(row.Fields[FieldAcres]),
			Comments:   row.Fields[FieldComments],
			RawData:    string(raw),
			RawHash:    rawHash,
			IngestedAt: clock.Now(),
		})
	}
	return incidents, nil
}
