package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/liberandum/internal/flagx"
	"github.com/dmitrijs2005/liberandum/internal/timex"
)

// JsonConfig is the on-disk JSON shape of the configuration. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted. Zero
// values leave the current setting untouched.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	OTPValidityDuration         timex.Duration `json:"otp_validity_duration"`
	OTPLength                   int            `json:"otp_length"`
	OTPSweepInterval            timex.Duration `json:"otp_sweep_interval"`
	AWSRegion                   string         `json:"aws_region"`
	AWSEndpointURL              string         `json:"aws_endpoint_url"`
	UsersTable                  string         `json:"users_table"`
	OTPTable                    string         `json:"otp_table"`
	TokensTable                 string         `json:"tokens_table"`
	TokenStatsTable             string         `json:"token_stats_table"`
	ExchangesTable              string         `json:"exchanges_table"`
	ExchangeStatsTable          string         `json:"exchange_stats_table"`
	TokenPlatformTable          string         `json:"token_platform_table"`
	CreateTables                bool           `json:"create_tables"`
	GoogleClientID              string         `json:"google_client_id"`
	GoogleRedirectURL           string         `json:"google_redirect_url"`
	MailProvider                string         `json:"mail_provider"`
	MailFrom                    string         `json:"mail_from"`
	SMTPHost                    string         `json:"smtp_host"`
	SMTPPort                    int            `json:"smtp_port"`
	SMTPTLSMode                 string         `json:"smtp_tls_mode"`
	RedisAddr                   string         `json:"redis_addr"`
	RedisDB                     int            `json:"redis_db"`
	CORSOrigins                 []string       `json:"cors_origins"`
	RateLimitRequests           int            `json:"rate_limit_requests"`
	RateLimitWindow             timex.Duration `json:"rate_limit_window"`
	MarketCacheTTL              timex.Duration `json:"market_cache_ttl"`
	BackupBucket                string         `json:"backup_bucket"`
	RequestTimeout              timex.Duration `json:"request_timeout"`
	RetryAttempts               int            `json:"retry_attempts"`
	LogLevel                    string         `json:"log_level"`
	LogFormat                   string         `json:"log_format"`
	DevelopmentMode             bool           `json:"development_mode"`
}

// parseJson overlays values from the JSON file named by -c/-config.
// Without the flag nothing is loaded.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config %s: %w", jsonConfigFile, err)
	}

	return applyJson(config, file)
}

func applyJson(config *Config, data []byte) error {
	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse json config: %w", err)
	}

	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	overlay(&config.OTPValidityDuration, c.OTPValidityDuration.Duration)
	overlay(&config.OTPLength, c.OTPLength)
	overlay(&config.OTPSweepInterval, c.OTPSweepInterval.Duration)
	overlay(&config.AWSRegion, c.AWSRegion)
	overlay(&config.AWSEndpointURL, c.AWSEndpointURL)
	overlay(&config.UsersTable, c.UsersTable)
	overlay(&config.OTPTable, c.OTPTable)
	overlay(&config.TokensTable, c.TokensTable)
	overlay(&config.TokenStatsTable, c.TokenStatsTable)
	overlay(&config.ExchangesTable, c.ExchangesTable)
	overlay(&config.ExchangeStatsTable, c.ExchangeStatsTable)
	overlay(&config.TokenPlatformTable, c.TokenPlatformTable)
	overlay(&config.CreateTables, c.CreateTables)
	overlay(&config.GoogleClientID, c.GoogleClientID)
	overlay(&config.GoogleRedirectURL, c.GoogleRedirectURL)
	overlay(&config.MailProvider, c.MailProvider)
	overlay(&config.MailFrom, c.MailFrom)
	overlay(&config.SMTPHost, c.SMTPHost)
	overlay(&config.SMTPPort, c.SMTPPort)
	overlay(&config.SMTPTLSMode, c.SMTPTLSMode)
	overlay(&config.RedisAddr, c.RedisAddr)
	overlay(&config.RedisDB, c.RedisDB)
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	overlay(&config.RateLimitRequests, c.RateLimitRequests)
	overlay(&config.RateLimitWindow, c.RateLimitWindow.Duration)
	overlay(&config.MarketCacheTTL, c.MarketCacheTTL.Duration)
	overlay(&config.BackupBucket, c.BackupBucket)
	overlay(&config.RequestTimeout, c.RequestTimeout.Duration)
	overlay(&config.RetryAttempts, c.RetryAttempts)
	overlay(&config.LogLevel, c.LogLevel)
	overlay(&config.LogFormat, c.LogFormat)
	overlay(&config.DevelopmentMode, c.DevelopmentMode)

	return nil
}

func overlay[T comparable](dst *T, src T) {
	var zero T
	if src != zero {
		*dst = src
	}
}
