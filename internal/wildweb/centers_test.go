package wildweb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const centersPage = `<html><body>
<table border="1">
  <tr><th>Center</th><th>Status</th><th>Link</th></tr>
  <tr>
    <td> Anchorage Dispatch </td>
    <td>Active</td>
    <td><a href="/AKACC/">AKACC</a></td>
  </tr>
  <tr>
    <td>Grass Valley ECC</td>
    <td>Active</td>
    <td><a href="/CAGVC/"> CAGVC </a></td>
  </tr>
  <tr>
    <td>Broken row</td>
    <td>Active</td>
  </tr>
  <tr>
    <td>No link</td>
    <td>Active</td>
    <td>CAXXX</td>
  </tr>
</table>
<table><tr><td>decoy table without border</td></tr></table>
</body></html>`

func TestParseCenters(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	centers, err := ParseCenters([]byte(centersPage), now)
	require.NoError(t, err)
	require.Len(t, centers, 2)

	ak := centers[0]
	require.Equal(t, "AKACC", ak.Code)
	require.Equal(t, "Anchorage Dispatch", ak.Name)
	require.Equal(t, "AK", ak.State)
	require.Equal(t, "Active", ak.Status)
	require.Equal(t, "/AKACC/", ak.URL)
	require.Equal(t, CenterUUID("AKACC"), ak.ID)
	require.Equal(t, now, ak.LastUpdated)

	require.Equal(t, "CAGVC", centers[1].Code)
	require.Equal(t, "CA", centers[1].State)
}

func TestParseCentersMissingTable(t *testing.T) {
	t.Parallel()

	_, err := ParseCenters([]byte("<html><body><p>maintenance</p></body></html>"), time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "table not found")
}
