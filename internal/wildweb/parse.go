package wildweb

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Canonical field keys for grid cells. Harvesters map column headers onto
// these; everything downstream (identity, persistence) keys off them.
const (
	FieldIncidentNumber = "incident_number"
	FieldFiscal         = "fiscal"
	FieldIncidentName   = "incident_name"
	FieldIncidentType   = "incident_type"
	FieldIncidentStatus = "incident_status"
	FieldLocalDate      = "local_date"
	FieldLocation       = "location"
	FieldLatLong        = "lat_long"
	FieldResources      = "resources"
	FieldAcres          = "acres"
	FieldComments       = "comments"
)

var (
	acresPattern   = regexp.MustCompile(`[\d,]+\.?\d*`)
	latLongPattern = regexp.MustCompile(`(-?\d+\.\d+)[,\s]+(-?\d+\.\d+)`)
)

// localDateLayouts are tried in order; grids have shipped all of these.
var localDateLayouts = []string{
	"01/02/06 1504",
	"01/02/2006 15:04",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ParseAcres extracts an acreage value from free-form cell text.
func ParseAcres(text string) *float64 {
	if text == "" {
		return nil
	}
	match := acresPattern.FindString(text)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseLatLong extracts a coordinate pair from cell text like
// "39.5432, -122.3456". Both values or neither are returned.
func ParseLatLong(text string) (lat, long *float64) {
	if text == "" {
		return nil, nil
	}
	m := latLongPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	la, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, nil
	}
	lo, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, nil
	}
	return &la, &lo
}

// ParseLocalDate parses the grid's local-date cell. Unparseable input
// returns nil; the raw text survives in the incident's RawData.
func ParseLocalDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range localDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	return nil
}
