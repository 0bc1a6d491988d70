// Package config handles configuration for the server component: defaults,
// then a dotenv file and environment variables, then an optional JSON file,
// then command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
)

// Config holds runtime settings for the Liberandum API server.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrGRPC string

	// SecretKey signs JWTs (HS256). The default is for development only.
	SecretKey                   string
	AccessTokenValidityDuration time.Duration

	OTPValidityDuration time.Duration
	OTPLength           int
	OTPSweepInterval    time.Duration

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpointURL     string

	UsersTable         string
	OTPTable           string
	TokensTable        string
	TokenStatsTable    string
	ExchangesTable     string
	ExchangeStatsTable string
	TokenPlatformTable string
	CreateTables       bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// MailProvider is one of smtp, postmark, log.
	MailProvider         string
	MailFrom             string
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SMTPTLSMode          string
	PostmarkServerToken  string
	PostmarkAccountToken string

	// RedisAddr enables distributed locks and rate limits when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	CoinGeckoAPIKey string
	MarketCacheTTL  time.Duration

	BackupBucket string

	RequestTimeout time.Duration
	RetryAttempts  int

	LogLevel  string
	LogFormat string

	// DevelopmentMode switches storage to memory and mail to the log sender.
	DevelopmentMode bool
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8000"
	c.EndpointAddrGRPC = ":50051"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.OTPValidityDuration = 10 * time.Minute
	c.OTPLength = 6
	c.OTPSweepInterval = 5 * time.Minute
	c.AWSRegion = "us-east-1"
	c.UsersTable = "users"
	c.OTPTable = "otp_codes"
	c.TokensTable = "LiberandumAggregationToken"
	c.TokenStatsTable = "LiberandumAggregationTokenStats"
	c.ExchangesTable = "LiberandumAggregationExchanges"
	c.ExchangeStatsTable = "LiberandumAggregationExchangesStats"
	c.TokenPlatformTable = "LiberandumAggregationTokenPlatform"
	c.MailProvider = "log"
	c.MailFrom = "no-reply@liberandum.local"
	c.SMTPHost = "smtp.gmail.com"
	c.SMTPPort = 587
	c.SMTPTLSMode = "starttls"
	c.CORSOrigins = []string{"http://localhost:5173", "http://localhost:8000", "http://localhost:3000"}
	c.RateLimitRequests = 20
	c.RateLimitWindow = time.Minute
	c.MarketCacheTTL = 30 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.RetryAttempts = 3
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// Tables returns the configured table names.
func (c *Config) Tables() dynamo.Tables {
	return dynamo.Tables{
		Users:         c.UsersTable,
		OTP:           c.OTPTable,
		Tokens:        c.TokensTable,
		TokenStats:    c.TokenStatsTable,
		Exchanges:     c.ExchangesTable,
		ExchangeStats: c.ExchangeStatsTable,
		TokenPlatform: c.TokenPlatformTable,
	}
}

// DynamoOptions returns the connection settings of the DynamoDB client.
func (c *Config) DynamoOptions() dynamo.Options {
	return dynamo.Options{
		Region:          c.AWSRegion,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
		EndpointURL:     c.AWSEndpointURL,
		RetryAttempts:   c.RetryAttempts,
	}
}

// MarketTables lists the tables reachable through the generic data API.
func (c *Config) MarketTables() []string {
	return []string{c.TokensTable, c.TokenStatsTable, c.ExchangesTable, c.ExchangeStatsTable, c.TokenPlatformTable}
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SecretKey) == "" {
		errs = append(errs, errors.New("secret key is empty"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token validity must be positive"))
	}
	if c.OTPValidityDuration <= 0 {
		errs = append(errs, errors.New("otp validity must be positive"))
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		errs = append(errs, fmt.Errorf("otp length %d out of range 4..10", c.OTPLength))
	}
	if c.UsersTable == "" || c.OTPTable == "" {
		errs = append(errs, errors.New("users and otp table names are required"))
	}
	switch c.MailProvider {
	case "log", "smtp", "postmark":
	default:
		errs = append(errs, fmt.Errorf("unknown mail provider %q", c.MailProvider))
	}
	if c.MailProvider == "postmark" && (c.PostmarkServerToken == "" || c.PostmarkAccountToken == "") {
		errs = append(errs, errors.New("postmark tokens are required"))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying the
// environment, an optional JSON file and finally command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
