package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/liberandum/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvConfig mirrors Config for environment variables. Pointer fields stay nil
// when the variable is unset, so only explicitly provided values override
// the defaults.
type EnvConfig struct {
	EndpointAddrHTTP *string `env:"HTTP_ADDR"`
	EndpointAddrGRPC *string `env:"GRPC_ADDR"`

	SecretKey                *string `env:"SECRET_KEY"`
	AccessTokenExpireMinutes *int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES"`

	OTPExpireMinutes *int           `env:"OTP_EXPIRE_MINUTES"`
	OTPLength        *int           `env:"OTP_LENGTH"`
	OTPSweepInterval *time.Duration `env:"OTP_SWEEP_INTERVAL"`

	AWSRegion          *string `env:"AWS_REGION"`
	AWSAccessKeyID     *string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey *string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpointURL     *string `env:"AWS_ENDPOINT_URL"`

	UsersTable         *string `env:"DYNAMODB_USERS_TABLE"`
	OTPTable           *string `env:"DYNAMODB_OTP_TABLE"`
	TokensTable        *string `env:"DYNAMODB_TOKENS_TABLE"`
	TokenStatsTable    *string `env:"DYNAMODB_TOKEN_STATS_TABLE"`
	ExchangesTable     *string `env:"DYNAMODB_EXCHANGES_TABLE"`
	ExchangeStatsTable *string `env:"DYNAMODB_EXCHANGE_STATS_TABLE"`
	TokenPlatformTable *string `env:"DYNAMODB_TOKEN_PLATFORM_TABLE"`
	CreateTables       *bool   `env:"DYNAMODB_CREATE_TABLES"`

	GoogleClientID     *string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret *string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  *string `env:"GOOGLE_REDIRECT_URI"`

	MailProvider         *string `env:"MAIL_PROVIDER"`
	MailFrom             *string `env:"MAIL_FROM"`
	SMTPHost             *string `env:"SMTP_HOST"`
	SMTPPort             *int    `env:"SMTP_PORT"`
	SMTPUser             *string `env:"SMTP_USER"`
	SMTPPassword         *string `env:"SMTP_PASSWORD"`
	SMTPTLS              *bool   `env:"SMTP_TLS"`
	SMTPTLSMode          *string `env:"SMTP_TLS_MODE"`
	PostmarkServerToken  *string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken *string `env:"POSTMARK_ACCOUNT_TOKEN"`

	RedisAddr     *string `env:"REDIS_ADDR"`
	RedisPassword *string `env:"REDIS_PASSWORD"`
	RedisDB       *int    `env:"REDIS_DB"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	RateLimitRequests *int           `env:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   *time.Duration `env:"RATE_LIMIT_WINDOW"`

	CoinGeckoAPIKey *string        `env:"COINGECKO_API_KEY"`
	MarketCacheTTL  *time.Duration `env:"MARKET_CACHE_TTL"`

	BackupBucket *string `env:"BACKUP_BUCKET"`

	RequestTimeout *time.Duration `env:"REQUEST_TIMEOUT"`
	RetryAttempts  *int           `env:"RETRY_ATTEMPTS"`

	LogLevel  *string `env:"LOG_LEVEL"`
	LogFormat *string `env:"LOG_FORMAT"`

	DevelopmentMode *bool `env:"DEVELOPMENT_MODE"`
}

// parseEnv loads a dotenv file (the -env-file flag, or ./.env when present)
// into the process environment and overlays the environment onto config.
// Variables already set in the environment win over the file.
func parseEnv(config *Config) error {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	return applyEnv(config, env.ToMap(os.Environ()))
}

func applyEnv(config *Config, environ map[string]string) error {
	c := &EnvConfig{}
	if err := env.ParseWithOptions(c, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.SecretKey, c.SecretKey)
	if c.AccessTokenExpireMinutes != nil {
		config.AccessTokenValidityDuration = time.Duration(*c.AccessTokenExpireMinutes) * time.Minute
	}
	if c.OTPExpireMinutes != nil {
		config.OTPValidityDuration = time.Duration(*c.OTPExpireMinutes) * time.Minute
	}
	set(&config.OTPLength, c.OTPLength)
	set(&config.OTPSweepInterval, c.OTPSweepInterval)

	set(&config.AWSRegion, c.AWSRegion)
	set(&config.AWSAccessKeyID, c.AWSAccessKeyID)
	set(&config.AWSSecretAccessKey, c.AWSSecretAccessKey)
	set(&config.AWSEndpointURL, c.AWSEndpointURL)

	set(&config.UsersTable, c.UsersTable)
	set(&config.OTPTable, c.OTPTable)
	set(&config.TokensTable, c.TokensTable)
	set(&config.TokenStatsTable, c.TokenStatsTable)
	set(&config.ExchangesTable, c.ExchangesTable)
	set(&config.ExchangeStatsTable, c.ExchangeStatsTable)
	set(&config.TokenPlatformTable, c.TokenPlatformTable)
	set(&config.CreateTables, c.CreateTables)

	set(&config.GoogleClientID, c.GoogleClientID)
	set(&config.GoogleClientSecret, c.GoogleClientSecret)
	set(&config.GoogleRedirectURL, c.GoogleRedirectURL)

	set(&config.MailProvider, c.MailProvider)
	set(&config.MailFrom, c.MailFrom)
	set(&config.SMTPHost, c.SMTPHost)
	set(&config.SMTPPort, c.SMTPPort)
	set(&config.SMTPUser, c.SMTPUser)
	set(&config.SMTPPassword, c.SMTPPassword)
	if c.SMTPTLS != nil && !*c.SMTPTLS {
		config.SMTPTLSMode = "none"
	}
	set(&config.SMTPTLSMode, c.SMTPTLSMode)
	set(&config.PostmarkServerToken, c.PostmarkServerToken)
	set(&config.PostmarkAccountToken, c.PostmarkAccountToken)

	set(&config.RedisAddr, c.RedisAddr)
	set(&config.RedisPassword, c.RedisPassword)
	set(&config.RedisDB, c.RedisDB)

	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}

	set(&config.RateLimitRequests, c.RateLimitRequests)
	set(&config.RateLimitWindow, c.RateLimitWindow)
	set(&config.CoinGeckoAPIKey, c.CoinGeckoAPIKey)
	set(&config.MarketCacheTTL, c.MarketCacheTTL)
	set(&config.BackupBucket, c.BackupBucket)
	set(&config.RequestTimeout, c.RequestTimeout)
	set(&config.RetryAttempts, c.RetryAttempts)
	set(&config.LogLevel, c.LogLevel)
	set(&config.LogFormat, c.LogFormat)
	set(&config.DevelopmentMode, c.DevelopmentMode)

	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
