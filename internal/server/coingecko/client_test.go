package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = common.RetryPolicy{Attempts: 3, Backoff: common.Backoff{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}}

func TestStatistics(t *testing.T) {
	s := ChartSeries{
		Prices:       [][]float64{{1, 100}, {2, 120}, {3, 90}, {4, 110}},
		TotalVolumes: [][]float64{{1, 10}, {2, 20}, {3, 30}},
	}
	st := Statistics(s)
	assert.Equal(t, 10.0, st.PriceChangePercentage)
	assert.Equal(t, 120.0, st.HighestPrice)
	assert.Equal(t, 90.0, st.LowestPrice)
	assert.Equal(t, 20.0, st.AverageVolume)

	assert.Equal(t, ChartStatistics{}, Statistics(ChartSeries{}))

	rounded := Statistics(ChartSeries{Prices: [][]float64{{1, 3}, {2, 4}}})
	assert.Equal(t, 33.33, rounded.PriceChangePercentage)
}

func TestClient_ChartFreePlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(apiKeyHeader))
		switch r.URL.Path {
		case "/coins/bitcoin/market_chart":
			assert.Equal(t, "7", r.URL.Query().Get("days"))
			assert.Equal(t, "hourly", r.URL.Query().Get("interval"))
			_, _ = w.Write([]byte(`{"prices":[[1,100],[2,110]],"market_caps":[[1,5]],"total_volumes":[[1,7],[2,9]]}`))
		case "/coins/bitcoin":
			_, _ = w.Write([]byte(`{"symbol":"btc","name":"Bitcoin"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New("", WithBaseURL(srv.URL), WithRetry(fastRetry))
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	chart, err := c.Chart(context.Background(), "bitcoin", "7d", "")
	require.NoError(t, err)
	assert.Equal(t, "BTC", chart.Symbol)
	assert.Equal(t, "usd", chart.Currency)
	assert.Equal(t, "free", chart.APISource)
	assert.Equal(t, int64(1700000000000), chart.UpdatedAt)
	assert.Equal(t, 10.0, chart.Statistics.PriceChangePercentage)
	assert.Equal(t, 8.0, chart.Statistics.AverageVolume)
}

func TestClient_ProPlanSendsKeyAndInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(apiKeyHeader))
		if r.URL.Path == "/coins/eth/market_chart" {
			assert.Equal(t, "1", r.URL.Query().Get("days"))
			assert.Equal(t, "5m", r.URL.Query().Get("interval"))
			_, _ = w.Write([]byte(`{"prices":[[1,1]]}`))
			return
		}
		_, _ = w.Write([]byte(`{"symbol":"eth","name":"Ethereum"}`))
	}))
	defer srv.Close()

	c := New("secret", WithBaseURL(srv.URL), WithRetry(fastRetry))
	assert.True(t, c.Pro())
	chart, err := c.Chart(context.Background(), "eth", "1h", "eur")
	require.NoError(t, err)
	assert.Equal(t, "pro", chart.APISource)
}

func TestClient_IntervalRules(t *testing.T) {
	free, pro := New(""), New("k")
	assert.Equal(t, "minutely", free.interval("24h"))
	assert.Equal(t, "daily", free.interval("1y"))
	assert.Equal(t, "1h", pro.interval("24h"))
	assert.Equal(t, "1d", pro.interval("90d"))
	assert.Equal(t, ProBaseURL, pro.baseURL)
	assert.Equal(t, FreeBaseURL, free.baseURL)
}

func TestClient_RateLimitHonorsRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":50000,"usd_24h_change":1.5,"usd_24h_vol":10,"usd_market_cap":99}}`))
	}))
	defer srv.Close()

	p, err := New("", WithBaseURL(srv.URL), WithRetry(fastRetry)).Price(context.Background(), "bitcoin", "usd")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, p.Price)
	assert.Equal(t, 1.5, p.PriceChange24h)
	assert.Nil(t, p.LastUpdated)
}

func TestClient_Errors(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	c := New("", WithBaseURL(srv.URL), WithRetry(fastRetry))

	_, err := c.Chart(context.Background(), "x", "7d", "usd")
	assert.ErrorIs(t, err, common.ErrorServiceUnavailable)

	status = http.StatusNotFound
	_, err = c.Chart(context.Background(), "x", "7d", "usd")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	status = http.StatusInternalServerError
	_, err = c.Chart(context.Background(), "x", "7d", "usd")
	assert.ErrorIs(t, err, common.ErrorServiceUnavailable)

	_, err = c.Chart(context.Background(), "x", "2w", "usd")
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, retryAfter("5"))
	assert.Equal(t, defaultRetryAfter, retryAfter(""))
	assert.Equal(t, defaultRetryAfter, retryAfter("soon"))
}
