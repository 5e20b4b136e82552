package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordBetPlaced(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(BetsPlacedTotal)

	RecordBetPlaced(0.01)

	assert.Equal(t, before+1, testutil.ToFloat64(BetsPlacedTotal))
}

func TestRecordBetRejected(t *testing.T) {
	InitRegistry()
	counter := BetsRejectedTotal.WithLabelValues("BettingClosed")
	before := testutil.ToFloat64(counter)

	RecordBetRejected("BettingClosed")
	RecordBetRejected("BettingClosed")

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRecordRaceSettled(t *testing.T) {
	InitRegistry()
	races := testutil.ToFloat64(RacesSettledTotal)
	won := testutil.ToFloat64(BetsSettledTotal.WithLabelValues("won"))
	lost := testutil.ToFloat64(BetsSettledTotal.WithLabelValues("lost"))
	payout := testutil.ToFloat64(PayoutTotal)

	RecordRaceSettled(0.2, 1, 3, 115)

	assert.Equal(t, races+1, testutil.ToFloat64(RacesSettledTotal))
	assert.Equal(t, won+1, testutil.ToFloat64(BetsSettledTotal.WithLabelValues("won")))
	assert.Equal(t, lost+3, testutil.ToFloat64(BetsSettledTotal.WithLabelValues("lost")))
	assert.Equal(t, payout+115, testutil.ToFloat64(PayoutTotal))
}

func TestRecordFailures(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordSettlementFailure("RaceAlreadyFinished")
		RecordPublishFailure("race_settled")
		RecordHTTPRequest(http.MethodGet, "/races/next", "200", 0.003)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	InitRegistry()
	RecordBetPlaced(0.01)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "race_settlement_bets_placed_total"))
}
