package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/metrics"
)

func TestRecorderHandler(t *testing.T) {
	rq := require.New(t)

	r := metrics.New()
	r.OfferReviewed("inbound", "accepted")
	r.TradeSent("counter", "ok")
	r.CatalogSize(1234)
	r.Search(20*time.Millisecond, 50)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	rq.Equal(http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	rq.NoError(err)
	rq.Contains(string(body), `limitedbot_offers_reviewed_total{direction="inbound",outcome="accepted"} 1`)
	rq.Contains(string(body), `limitedbot_trade_sends_total{kind="counter",result="ok"} 1`)
	rq.Contains(string(body), "limitedbot_catalog_items 1234")
	rq.Contains(string(body), "limitedbot_candidates_considered_count 1")
}

func TestNilRecorder(t *testing.T) {
	rq := require.New(t)

	var r *metrics.Recorder
	rq.NotPanics(func() {
		r.OfferReviewed("inbound", "declined")
		r.QuotaUsed(3)
		r.Search(time.Second, 1)
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	rq.Equal(http.StatusNotFound, rec.Code)
}
