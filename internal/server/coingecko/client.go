// Package coingecko is a small client for the CoinGecko market API. With an
// API key it talks to the Pro endpoint.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
)

const (
	FreeBaseURL = "https://api.coingecko.com/api/v3"
	ProBaseURL  = "https://pro-api.coingecko.com/api/v3"

	apiKeyHeader      = "x-cg-pro-api-key"
	defaultRetryAfter = 60 * time.Second
)

// Timeframes accepted by Chart.
var Timeframes = []string{"1h", "24h", "7d", "30d", "90d", "1y", "max"}

var timeframeDays = map[string]string{
	"1h": "1", "24h": "1", "7d": "7", "30d": "30", "90d": "90", "1y": "365", "max": "max",
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      common.RetryPolicy
	now        func() time.Time
}

type Option func(*Client)

// WithBaseURL overrides the endpoint selected from the API key.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithRetry(p common.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    FreeBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      common.DefaultRetryPolicy,
		now:        time.Now,
	}
	if apiKey != "" {
		c.baseURL = ProBaseURL
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Pro() bool {
	return c.apiKey != ""
}

func (c *Client) source() string {
	if c.Pro() {
		return "pro"
	}
	return "free"
}

// interval picks the sampling interval for timeframe. Pro and free plans name
// intervals differently.
func (c *Client) interval(timeframe string) string {
	pro := map[string]string{"1h": "5m", "24h": "1h", "7d": "4h"}
	free := map[string]string{"1h": "minutely", "24h": "minutely", "7d": "hourly"}
	if c.Pro() {
		if v, ok := pro[timeframe]; ok {
			return v
		}
		return "1d"
	}
	if v, ok := free[timeframe]; ok {
		return v
	}
	return "daily"
}

// ChartStatistics summarizes a price series.
type ChartStatistics struct {
	PriceChangePercentage float64 `json:"price_change_percentage"`
	HighestPrice          float64 `json:"highest_price"`
	LowestPrice           float64 `json:"lowest_price"`
	AverageVolume         float64 `json:"average_volume"`
}

type ChartSeries struct {
	Prices       [][]float64 `json:"prices"`
	MarketCaps   [][]float64 `json:"market_caps"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

type Chart struct {
	TokenID    string          `json:"token_id"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	Timeframe  string          `json:"timeframe"`
	Currency   string          `json:"currency"`
	Data       ChartSeries     `json:"data"`
	Statistics ChartStatistics `json:"statistics"`
	UpdatedAt  int64           `json:"updated_at"`
	APISource  string          `json:"api_source"`
}

type coinInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Chart returns the market chart of tokenID over timeframe. An empty price
// series is ErrorNotFound.
func (c *Client) Chart(ctx context.Context, tokenID, timeframe, currency string) (*Chart, error) {
	days, ok := timeframeDays[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: timeframe %q", common.ErrorInvalidArgument, timeframe)
	}
	if currency == "" {
		currency = "usd"
	}

	params := url.Values{"vs_currency": {currency}, "days": {days}}
	if (c.Pro() && days != "max") || (!c.Pro() && days != "1") {
		params.Set("interval", c.interval(timeframe))
	}

	var series ChartSeries
	if err := c.get(ctx, "/coins/"+url.PathEscape(tokenID)+"/market_chart", params, &series); err != nil {
		return nil, err
	}
	var info coinInfo
	if err := c.get(ctx, "/coins/"+url.PathEscape(tokenID), nil, &info); err != nil {
		return nil, err
	}
	if len(series.Prices) == 0 {
		return nil, fmt.Errorf("%w: no chart data for %q", common.ErrorNotFound, tokenID)
	}

	return &Chart{
		TokenID:    tokenID,
		Symbol:     strings.ToUpper(info.Symbol),
		Name:       info.Name,
		Timeframe:  timeframe,
		Currency:   currency,
		Data:       series,
		Statistics: Statistics(series),
		UpdatedAt:  c.now().UnixMilli(),
		APISource:  c.source(),
	}, nil
}

// Statistics computes the chart summary. The change is rounded to two
// decimals and is 0 when the first price is not positive.
func Statistics(s ChartSeries) ChartStatistics {
	var st ChartStatistics
	prices := values(s.Prices)
	if len(prices) > 0 {
		first, last := prices[0], prices[len(prices)-1]
		if first > 0 {
			st.PriceChangePercentage = math.Round((last-first)/first*100*100) / 100
		}
		st.HighestPrice, st.LowestPrice = prices[0], prices[0]
		for _, p := range prices[1:] {
			st.HighestPrice = max(st.HighestPrice, p)
			st.LowestPrice = min(st.LowestPrice, p)
		}
	}
	if vols := values(s.TotalVolumes); len(vols) > 0 {
		sum := 0.0
		for _, v := range vols {
			sum += v
		}
		st.AverageVolume = sum / float64(len(vols))
	}
	return st
}

func values(points [][]float64) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		if len(p) >= 2 {
			out = append(out, p[1])
		}
	}
	return out
}

type Price struct {
	TokenID        string   `json:"token_id"`
	Symbol         string   `json:"symbol"`
	Price          float64  `json:"price"`
	PriceChange24h float64  `json:"price_change_24h"`
	Volume24h      float64  `json:"volume_24h"`
	MarketCap      float64  `json:"market_cap"`
	Timestamp      int64    `json:"timestamp"`
	LastUpdated    *float64 `json:"last_updated"`
	APISource      string   `json:"api_source"`
}

// Price returns the current quote of tokenID.
func (c *Client) Price(ctx context.Context, tokenID, currency string) (*Price, error) {
	if currency == "" {
		currency = "usd"
	}
	params := url.Values{
		"ids":                 {tokenID},
		"vs_currencies":       {currency},
		"include_24hr_change": {"true"},
		"include_24hr_vol":    {"true"},
		"include_market_cap":  {"true"},
	}
	if c.Pro() {
		params.Set("include_last_updated_at", "true")
		params.Set("precision", "full")
	}

	var quotes map[string]map[string]float64
	if err := c.get(ctx, "/simple/price", params, &quotes); err != nil {
		return nil, err
	}
	q, ok := quotes[tokenID]
	if !ok {
		return nil, fmt.Errorf("%w: no price for %q", common.ErrorNotFound, tokenID)
	}

	symbol := strings.ToUpper(tokenID)
	var info coinInfo
	if err := c.get(ctx, "/coins/"+url.PathEscape(tokenID), nil, &info); err == nil && info.Symbol != "" {
		symbol = strings.ToUpper(info.Symbol)
	}

	p := &Price{
		TokenID:        tokenID,
		Symbol:         symbol,
		Price:          q[currency],
		PriceChange24h: q[currency+"_24h_change"],
		Volume24h:      q[currency+"_24h_vol"],
		MarketCap:      q[currency+"_market_cap"],
		Timestamp:      c.now().UnixMilli(),
		APISource:      c.source(),
	}
	if v, ok := q["last_updated_at"]; ok && c.Pro() {
		p.LastUpdated = &v
	}
	return p, nil
}

// get performs a GET with bounded retries. 429 waits for Retry-After; auth
// failures and 4xx answers are not retried.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	return common.Retry(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return common.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "Liberandum-API/1.0")
		if c.apiKey != "" {
			req.Header.Set(apiKeyHeader, c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return common.Permanent(errors.Join(common.ErrorServiceUnavailable, fmt.Errorf("decode %s: %w", path, err)))
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return &common.RetryAfterError{
				Err:   fmt.Errorf("coingecko rate limited %s", path),
				Delay: retryAfter(resp.Header.Get("Retry-After")),
			}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return common.Permanent(errors.Join(common.ErrorServiceUnavailable, fmt.Errorf("coingecko rejected the api key: status %d", resp.StatusCode)))
		case resp.StatusCode == http.StatusNotFound:
			return common.Permanent(fmt.Errorf("%w: coingecko %s", common.ErrorNotFound, path))
		case resp.StatusCode >= 500:
			return fmt.Errorf("coingecko %s: status %d", path, resp.StatusCode)
		default:
			return common.Permanent(fmt.Errorf("%w: coingecko %s: status %d", common.ErrorInvalidArgument, path, resp.StatusCode))
		}
	})
}

func retryAfter(h string) time.Duration {
	if sec, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && sec >= 0 {
		return time.Duration(sec) * time.Second
	}
	return defaultRetryAfter
}
