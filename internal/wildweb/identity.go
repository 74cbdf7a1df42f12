package wildweb

import (
	"fmt"

	"github.com/google/uuid"
)

// CenterUUID derives the stable identity for a dispatch center. The same
// center code always yields the same UUID, so re-scrapes update in place.
func CenterUUID(centerCode string) string {
	name := fmt.Sprintf("wildweb.dispatch.center.%s", centerCode)
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// IncidentUUID derives the stable identity for an incident occurrence.
// Status is part of the key: when an incident changes status it becomes a
// new row, which is how status history accumulates in the incidents table.
func IncidentUUID(centerCode, number, name, status string) string {
	key := fmt.Sprintf("wildweb.incident.%s.%s.%s.%s", centerCode, number, name, status)
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(key)).String()
}

// StateFromCode extracts the state abbreviation from a center code.
// WildWeb codes lead with the two-letter state (e.g. CAANCC -> CA).
func StateFromCode(centerCode string) string {
	if len(centerCode) >= 2 {
		return centerCode[:2]
	}
	return ""
}
