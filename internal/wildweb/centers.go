package wildweb

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ParseCenters extracts dispatch centers from the WildWeb index page. The
// page lists centers in the single bordered table: name, status, and a
// link whose text is the center code.
func ParseCenters(html []byte, now time.Time) ([]DispatchCenter, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse centers html: %w", err)
	}

	table := doc.Find(`table[border="1"]`).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("dispatch center table not found")
	}

	var centers []DispatchCenter
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			// header row
			return
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		link := cells.Eq(2).Find("a").First()
		if link.Length() == 0 {
			return
		}
		code := strings.TrimSpace(link.Text())
		if code == "" {
			return
		}
		href, _ := link.Attr("href")
		centers = append(centers, DispatchCenter{
			ID:          CenterUUID(code),
			Code:        code,
			Name:        strings.TrimSpace(cells.Eq(0).Text()),
			State:       StateFromCode(code),
			Status:      strings.TrimSpace(cells.Eq(1).Text()),
			URL:         href,
			LastUpdated: now,
		})
	})
	return centers, nil
}
