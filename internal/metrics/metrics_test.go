package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// The Observe helpers must work from any call site without prior setup;
// collectors register at package load.
func TestObserveHelpersNeedNoSetup(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(scraperPagesTotal.WithLabelValues("centers", "200"))
	ObservePage("centers", 200)
	require.Equal(t, before+1, testutil.ToFloat64(scraperPagesTotal.WithLabelValues("centers", "200")))

	ObserveRetry("CAGVC")
	require.GreaterOrEqual(t, testutil.ToFloat64(scraperRetriesTotal.WithLabelValues("CAGVC")), 1.0)

	ObserveHTTPRequest("GET", "/status", 200, 25*time.Millisecond)
	require.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")), 1.0)

	ObserveDBWrite("incidents", 2*time.Millisecond)
	require.Equal(t, 1, testutil.CollectAndCount(dbWriteDurationSeconds, "db_write_duration_seconds"))

	ObserveTickSkipped()
	require.GreaterOrEqual(t, testutil.ToFloat64(schedulerTicksSkippedTotal), 1.0)
}

func TestHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	require.NotNil(t, Handler())
}
