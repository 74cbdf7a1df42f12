package headless

import (
	"strings"

	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// columnMap assigns a cell position to each canonical field.
type columnMap map[string]int

// mapColumns derives field positions from the grid's column header texts.
// Matching is substring-based because header labels drift between grid
// deployments ("Inc#", "Inc #", "Acres Burned"). An unrecognized header
// set falls back to the long-standing column order.
func mapColumns(headers []string) columnMap {
	m := columnMap{}
	for i, header := range headers {
		switch h := strings.ToLower(strings.TrimSpace(header)); {
		case strings.Contains(h, "inc#"):
			m[wildweb.FieldIncidentNumber] = i
		case strings.Contains(h, "fiscal"):
			m[wildweb.FieldFiscal] = i
		case strings.Contains(h, "name"):
			m[wildweb.FieldIncidentName] = i
		case strings.Contains(h, "type"):
			m[wildweb.FieldIncidentType] = i
		case strings.Contains(h, "status"):
			m[wildweb.FieldIncidentStatus] = i
		case strings.Contains(h, "local"), strings.Contains(h, "date"):
			m[wildweb.FieldLocalDate] = i
		case strings.Contains(h, "location"):
			m[wildweb.FieldLocation] = i
		case strings.Contains(h, "lat"), strings.Contains(h, "long"):
			m[wildweb.FieldLatLong] = i
		case strings.Contains(h, "resources"):
			m[wildweb.FieldResources] = i
		case strings.Contains(h, "acres"):
			m[wildweb.FieldAcres] = i
		case strings.Contains(h, "web"), strings.Contains(h, "comment"):
			m[wildweb.FieldComments] = i
		}
	}
	if len(m) == 0 {
		return defaultColumns()
	}
	return m
}

func defaultColumns() columnMap {
	return columnMap{
		wildweb.FieldIncidentNumber: 0,
		wildweb.FieldFiscal:         1,
		wildweb.FieldIncidentName:   2,
		wildweb.FieldIncidentType:   3,
		wildweb.FieldIncidentStatus: 4,
		wildweb.FieldLocalDate:      5,
		wildweb.FieldLocation:       6,
		wildweb.FieldLatLong:        7,
		wildweb.FieldResources:      8,
		wildweb.FieldAcres:          9,
		wildweb.FieldComments:       10,
	}
}

// rowFields maps raw cell texts onto canonical fields. Positions past the
// end of the cell slice yield empty strings, matching grids that collapse
// trailing columns on narrow rows.
func (m columnMap) rowFields(cells []string) map[string]string {
	fields := make(map[string]string, len(m))
	for field, pos := range m {
		if pos < len(cells) {
			fields[field] = strings.TrimSpace(cells[pos])
		} else {
			fields[field] = ""
		}
	}
	return fields
}
