package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/coingecko"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/repomanager"
	"github.com/patrickmn/go-cache"
)

const (
	MaxTokensPerPage     = 250
	DefaultTokensPerPage = 100
)

// ChartSource provides historical market charts.
type ChartSource interface {
	Chart(ctx context.Context, tokenID, timeframe, currency string) (*coingecko.Chart, error)
}

// MarketService serves the public market listings. Listings are cached for
// a short time and degrade to empty results when storage cannot be read.
type MarketService struct {
	repos  repomanager.RepositoryManager
	charts ChartSource
	cache  *cache.Cache
	logger logging.Logger
}

func NewMarketService(repos repomanager.RepositoryManager, charts ChartSource, ttl time.Duration, logger logging.Logger) *MarketService {
	return &MarketService{
		repos:  repos,
		charts: charts,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger.With("module", "market"),
	}
}

type Sparkline struct {
	Price []float64 `json:"price"`
}

type TokenSummary struct {
	ID                       string    `json:"id"`
	Symbol                   string    `json:"symbol"`
	Name                     string    `json:"name"`
	Image                    string    `json:"image"`
	CurrentPrice             float64   `json:"current_price"`
	MarketCap                int64     `json:"market_cap"`
	PriceChangePercentage24h float64   `json:"price_change_percentage_24h"`
	PriceChangePercentage7d  float64   `json:"price_change_percentage_7d"`
	SparklineIn7d            Sparkline `json:"sparkline_in_7d"`
}

type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}

type TokenList struct {
	Data       []TokenSummary `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// cached returns the value stored under key or computes and stores it.
func cached[T any](c *cache.Cache, key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v.(T), nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.SetDefault(key, v)
	return v, nil
}

func (s *MarketService) activeRecords(ctx context.Context, table string) ([]models.Record, error) {
	repo, err := s.repos.Records(table)
	if err != nil {
		return nil, err
	}
	recs, err := repo.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(recs))
	for _, r := range recs {
		if !r.Deleted() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MarketService) tokenStats(ctx context.Context, by string) ([]models.TokenStat, error) {
	return cached(s.cache, "token-stats:"+by, func() ([]models.TokenStat, error) {
		recs, err := s.activeRecords(ctx, s.repos.Tables().TokenStats)
		if err != nil {
			return nil, err
		}
		stats := make([]models.TokenStat, 0, len(recs))
		for _, r := range recs {
			stats = append(stats, models.TokenStatFromRecord(r))
		}
		switch by {
		case "market_cap":
			sort.SliceStable(stats, func(i, j int) bool { return stats[i].MarketCap > stats[j].MarketCap })
		case "volume":
			sort.SliceStable(stats, func(i, j int) bool { return stats[i].TradingVolume24h > stats[j].TradingVolume24h })
		}
		return stats, nil
	})
}

// tokenImages maps upper-case symbols to avatar URLs.
func (s *MarketService) tokenImages(ctx context.Context) map[string]string {
	images, err := cached(s.cache, "token-images", func() (map[string]string, error) {
		recs, err := s.activeRecords(ctx, s.repos.Tables().Tokens)
		if err != nil {
			return nil, err
		}
		m := make(map[string]string, len(recs))
		for _, r := range recs {
			t := models.TokenFromRecord(r)
			if t.Symbol != "" && t.AvatarImage != "" {
				m[strings.ToUpper(t.Symbol)] = t.AvatarImage
			}
		}
		return m, nil
	})
	if err != nil {
		s.logger.Warn(ctx, "Token images unavailable", "error", err)
		return map[string]string{}
	}
	return images
}

// Tokens returns one page of token statistics, optionally sorted by
// market_cap or volume (descending).
func (s *MarketService) Tokens(ctx context.Context, page, limit int, by string) (*TokenList, error) {
	if by != "" && by != "market_cap" && by != "volume" {
		return nil, fmt.Errorf("%w: sort must be market_cap or volume", common.ErrorInvalidArgument)
	}
	if page < 1 || limit < 1 || limit > MaxTokensPerPage {
		return nil, fmt.Errorf("%w: page must be >= 1 and limit within 1..%d", common.ErrorInvalidArgument, MaxTokensPerPage)
	}

	list := &TokenList{Data: []TokenSummary{}, Pagination: Pagination{CurrentPage: page, ItemsPerPage: limit}}
	stats, err := s.tokenStats(ctx, by)
	if err != nil {
		s.logger.Warn(ctx, "Token listing degraded to empty", "error", err)
		return list, nil
	}

	total := len(stats)
	list.Pagination.TotalItems = total
	list.Pagination.TotalPages = (total + limit - 1) / limit

	start := (page - 1) * limit
	if start >= total {
		return list, nil
	}
	end := min(start+limit, total)
	images := s.tokenImages(ctx)
	for _, st := range stats[start:end] {
		list.Data = append(list.Data, tokenSummary(st, images[strings.ToUpper(st.Symbol)]))
	}
	return list, nil
}

func tokenSummary(st models.TokenStat, image string) TokenSummary {
	symbol := strings.ToUpper(st.Symbol)
	if symbol == "" {
		symbol = "UNKNOWN"
	}
	name := st.CoinName
	if name == "" {
		name = "Unknown Token"
	}
	spark := make([]float64, 7)
	for i := range spark {
		spark[i] = st.Price
	}
	return TokenSummary{
		ID:                       st.PublicID(),
		Symbol:                   symbol,
		Name:                     name,
		Image:                    image,
		CurrentPrice:             st.Price,
		MarketCap:                int64(st.MarketCap),
		PriceChangePercentage24h: st.VolumeChange24h,
		SparklineIn7d:            Sparkline{Price: spark},
	}
}

type PriceValue struct {
	Price float64 `json:"price"`
}

type TokenDetail struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	CurrentPrice             float64 `json:"current_price"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	MarketData               struct {
		MarketCap         map[string]int64   `json:"market_cap"`
		TotalVolume       map[string]int64   `json:"total_volume"`
		CirculatingSupply map[string]float64 `json:"circulating_supply"`
		MaxSupply         map[string]float64 `json:"max_supply"`
		TotalSupply       map[string]float64 `json:"total_supply"`
	} `json:"market_data"`
	Statistics struct {
		AllTimeHigh PriceValue `json:"all_time_high"`
		AllTimeLow  PriceValue `json:"all_time_low"`
	} `json:"statistics"`
}

// Token returns the statistics of the token with coingecko id, joined with
// its token row by symbol.
func (s *MarketService) Token(ctx context.Context, id string) (*TokenDetail, error) {
	statsRepo, err := s.repos.Records(s.repos.Tables().TokenStats)
	if err != nil {
		return nil, err
	}
	found, err := statsRepo.FindByField(ctx, "coingecko_id", id)
	if err != nil {
		return nil, errors.Join(common.ErrorServiceUnavailable, err)
	}
	var rec models.Record
	for _, r := range found {
		if !r.Deleted() {
			rec = r
			break
		}
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: token %q", common.ErrorNotFound, id)
	}

	st := models.TokenStatFromRecord(rec)
	d := &TokenDetail{
		ID:                       st.CoingeckoID,
		Symbol:                   strings.ToUpper(st.Symbol),
		Name:                     st.CoinName,
		CurrentPrice:             st.Price,
		PriceChangePercentage24h: st.VolumeChange24h,
	}
	d.MarketData.MarketCap = map[string]int64{"usd": int64(st.MarketCap)}
	d.MarketData.TotalVolume = map[string]int64{"usd": int64(st.TradingVolume24h)}
	d.MarketData.CirculatingSupply = map[string]float64{"value": st.TotalSupply}
	d.MarketData.MaxSupply = map[string]float64{"value": st.MaxSupply}
	d.MarketData.TotalSupply = map[string]float64{"value": st.TotalSupply}
	d.Statistics.AllTimeHigh.Price = st.ATH
	d.Statistics.AllTimeLow.Price = st.ATL

	if st.Symbol != "" {
		if tokensRepo, err := s.repos.Records(s.repos.Tables().Tokens); err == nil {
			tokens, err := tokensRepo.FindByField(ctx, "symbol", st.Symbol)
			if err != nil {
				s.logger.Warn(ctx, "Token row lookup failed", "symbol", st.Symbol, "error", err)
			}
			if len(tokens) > 0 {
				d.Image = models.TokenFromRecord(tokens[0]).AvatarImage
			}
		}
	}
	return d, nil
}

// Chart proxies the market chart of id, cached per timeframe and currency.
func (s *MarketService) Chart(ctx context.Context, id, timeframe, currency string) (*coingecko.Chart, error) {
	if currency == "" {
		currency = "usd"
	}
	return cached(s.cache, "chart:"+id+":"+timeframe+":"+currency, func() (*coingecko.Chart, error) {
		return s.charts.Chart(ctx, id, timeframe, currency)
	})
}

type ExchangeSummary struct {
	Rank                 int       `json:"rank"`
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Image                string    `json:"image"`
	Volume24hUSD         float64   `json:"volume_24h_usd"`
	Volume24hFormatted   string    `json:"volume_24h_formatted"`
	ReservesUSD          float64   `json:"reserves_usd"`
	ReservesFormatted    string    `json:"reserves_formatted"`
	TradingPairsCount    int       `json:"trading_pairs_count"`
	VisitorsMonthly      string    `json:"visitors_monthly"`
	SupportedFiat        []string  `json:"supported_fiat"`
	SupportedFiatDisplay string    `json:"supported_fiat_display"`
	VolumeChart7d        []float64 `json:"volume_chart_7d"`
	ExchangeType         string    `json:"exchange_type"`
}

type ExchangeList struct {
	Data []ExchangeSummary `json:"data"`
}

// Exchanges ranks exchanges by 24h volume.
func (s *MarketService) Exchanges(ctx context.Context) (*ExchangeList, error) {
	list, err := cached(s.cache, "exchanges", func() (*ExchangeList, error) {
		return s.loadExchanges(ctx)
	})
	if err != nil {
		s.logger.Warn(ctx, "Exchange listing degraded to empty", "error", err)
		return &ExchangeList{Data: []ExchangeSummary{}}, nil
	}
	return list, nil
}

func (s *MarketService) loadExchanges(ctx context.Context) (*ExchangeList, error) {
	recs, err := s.activeRecords(ctx, s.repos.Tables().ExchangeStats)
	if err != nil {
		return nil, err
	}
	stats := make([]models.ExchangeStat, 0, len(recs))
	for _, r := range recs {
		stats = append(stats, models.ExchangeStatFromRecord(r))
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].TradingVolume24h > stats[j].TradingVolume24h })

	exchanges, err := s.repos.Records(s.repos.Tables().Exchanges)
	if err != nil {
		return nil, err
	}
	list := &ExchangeList{Data: make([]ExchangeSummary, 0, len(stats))}
	for i, st := range stats {
		image := ""
		if st.ExchangeID != "" {
			if rec, err := exchanges.Get(ctx, st.ExchangeID); err == nil {
				image = models.ExchangeFromRecord(rec).AvatarImage
			}
		}
		list.Data = append(list.Data, exchangeSummary(st, image, i+1))
	}
	return list, nil
}

func exchangeSummary(st models.ExchangeStat, image string, rank int) ExchangeSummary {
	name := st.Name
	if name == "" {
		name = "Unknown Exchange"
	}
	visitors := st.Visitors30d
	if visitors == "" {
		visitors = "0"
	}
	fiat := st.SupportedFiat
	if len(fiat) > 3 {
		fiat = fiat[:3]
	}
	display := strings.Join(fiat, ", ")
	if extra := len(st.SupportedFiat) - 3; extra > 0 {
		display += fmt.Sprintf("\n+%d more", extra)
	}
	chart := make([]float64, 0, 7)
	for _, m := range []float64{0.9, 1.1, 0.95, 1.05, 0.98, 1.02, 1.0} {
		chart = append(chart, st.TradingVolume24h*m)
	}
	return ExchangeSummary{
		Rank:                 rank,
		ID:                   strings.ReplaceAll(strings.ToLower(name), " ", "_"),
		Name:                 name,
		Image:                image,
		Volume24hUSD:         st.TradingVolume24h,
		Volume24hFormatted:   formatUSD(st.TradingVolume24h, 1),
		ReservesUSD:          st.Reserves,
		ReservesFormatted:    formatUSD(st.Reserves, 0),
		TradingPairsCount:    int(st.CoinsCount),
		VisitorsMonthly:      visitors + "M",
		SupportedFiat:        append([]string{}, fiat...),
		SupportedFiatDisplay: display,
		VolumeChart7d:        chart,
		ExchangeType:         "centralized",
	}
}

// formatUSD renders v in billions above one billion, in millions otherwise.
func formatUSD(v float64, decimals int) string {
	if v > 1e9 {
		return fmt.Sprintf("$%.*fB", decimals, v/1e9)
	}
	return fmt.Sprintf("$%.*fM", decimals, v/1e6)
}

type TableStatus struct {
	Accessible bool   `json:"accessible"`
	HasData    bool   `json:"has_data"`
	Count      *int   `json:"count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CheckTables probes every market table with a one-item read.
func (s *MarketService) CheckTables(ctx context.Context) map[string]TableStatus {
	out := map[string]TableStatus{}
	for _, sc := range s.repos.Tables().MarketSchemas() {
		repo, err := s.repos.Records(sc.Name)
		if err == nil {
			var recs []models.Record
			if recs, err = repo.List(ctx, 1); err == nil {
				out[sc.Name] = TableStatus{Accessible: true, HasData: len(recs) > 0}
				continue
			}
		}
		out[sc.Name] = TableStatus{Error: err.Error()}
	}
	return out
}

type DatabaseStatistics struct {
	Tables       map[string]TableStatus `json:"tables"`
	TotalRecords int                    `json:"total_records"`
}

// Statistics counts the records of every market table.
func (s *MarketService) Statistics(ctx context.Context) DatabaseStatistics {
	st := DatabaseStatistics{Tables: map[string]TableStatus{}}
	for _, sc := range s.repos.Tables().MarketSchemas() {
		repo, err := s.repos.Records(sc.Name)
		if err == nil {
			var n int
			if n, err = repo.Count(ctx); err == nil {
				st.Tables[sc.Name] = TableStatus{Accessible: true, HasData: n > 0, Count: &n}
				st.TotalRecords += n
				continue
			}
		}
		st.Tables[sc.Name] = TableStatus{Error: err.Error()}
	}
	return st
}

type MarketHealth struct {
	Status       string                 `json:"status"`
	Service      string                 `json:"service"`
	TablesStatus map[string]TableStatus `json:"tables_status"`
	DataStatus   struct {
		TokensAvailable    bool `json:"tokens_available"`
		ExchangesAvailable bool `json:"exchanges_available"`
	} `json:"data_status"`
}

func (s *MarketService) Health(ctx context.Context) MarketHealth {
	h := MarketHealth{Status: "healthy", Service: "Market Data API", TablesStatus: s.CheckTables(ctx)}
	for _, ts := range h.TablesStatus {
		if !ts.Accessible {
			h.Status = "degraded"
		}
	}
	if tokens, err := s.Tokens(ctx, 1, 1, ""); err == nil {
		h.DataStatus.TokensAvailable = len(tokens.Data) > 0
	}
	if ex, err := s.Exchanges(ctx); err == nil {
		h.DataStatus.ExchangesAvailable = len(ex.Data) > 0
	}
	return h
}
