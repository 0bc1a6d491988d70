package models

import "strings"

// TokenStat is the typed view of a token statistics row.
type TokenStat struct {
	CoingeckoID      string
	Symbol           string
	CoinName         string
	Price            float64
	MarketCap        float64
	TradingVolume24h float64
	VolumeChange24h  float64
	ATH              float64
	ATL              float64
	TotalSupply      float64
	MaxSupply        float64
}

func TokenStatFromRecord(r Record) TokenStat {
	return TokenStat{
		CoingeckoID:      r.String("coingecko_id"),
		Symbol:           r.String("symbol"),
		CoinName:         r.String("coin_name"),
		Price:            r.Float("price"),
		MarketCap:        r.Float("market_cap"),
		TradingVolume24h: r.Float("trading_volume_24h"),
		VolumeChange24h:  r.Float("volume_24h_change_24h"),
		ATH:              r.Float("ath"),
		ATL:              r.Float("atl"),
		TotalSupply:      r.Float("token_total_supply"),
		MaxSupply:        r.Float("token_max_supply"),
	}
}

// PublicID is the identifier exposed by the market API.
func (t TokenStat) PublicID() string {
	id := t.CoingeckoID
	if id == "" {
		id = t.Symbol
	}
	if id == "" {
		id = "unknown"
	}
	return strings.ToLower(id)
}

// Token is the typed view of a token row.
type Token struct {
	ID          string
	Symbol      string
	CoingeckoID string
	AvatarImage string
}

func TokenFromRecord(r Record) Token {
	return Token{
		ID:          r.ID(),
		Symbol:      r.String("symbol"),
		CoingeckoID: r.String("coingecko_id"),
		AvatarImage: r.String("avatar_image"),
	}
}

// ExchangeStat is the typed view of an exchange statistics row.
type ExchangeStat struct {
	ExchangeID       string
	Name             string
	TradingVolume24h float64
	Reserves         float64
	CoinsCount       float64
	Visitors30d      string
	SupportedFiat    []string
}

func ExchangeStatFromRecord(r Record) ExchangeStat {
	return ExchangeStat{
		ExchangeID:       r.String("exchange_id"),
		Name:             r.String("name"),
		TradingVolume24h: r.Float("trading_volume_24h"),
		Reserves:         r.Float("reserves"),
		CoinsCount:       r.Float("coins_count"),
		Visitors30d:      r.String("visitors_30d"),
		SupportedFiat:    r.Strings("list_supported"),
	}
}

// Exchange is the typed view of an exchange row.
type Exchange struct {
	ID          string
	Name        string
	AvatarImage string
}

func ExchangeFromRecord(r Record) Exchange {
	return Exchange{
		ID:          r.ID(),
		Name:        r.String("name"),
		AvatarImage: r.String("avatar_image"),
	}
}
