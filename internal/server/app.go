// Package server wires storage, mail, caches and the API services together
// and runs the HTTP API, the gRPC health listener and the OTP sweeper until
// shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/auth"
	"github.com/dmitrijs2005/liberandum/internal/server/backup"
	"github.com/dmitrijs2005/liberandum/internal/server/coingecko"
	"github.com/dmitrijs2005/liberandum/internal/server/config"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/dmitrijs2005/liberandum/internal/server/keylock"
	"github.com/dmitrijs2005/liberandum/internal/server/mailer"
	"github.com/dmitrijs2005/liberandum/internal/server/metrics"
	"github.com/dmitrijs2005/liberandum/internal/server/oauth"
	"github.com/dmitrijs2005/liberandum/internal/server/otp"
	"github.com/dmitrijs2005/liberandum/internal/server/ratelimit"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/liberandum/internal/server/services"
	"github.com/dmitrijs2005/liberandum/internal/server/users"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/liberandum/internal/server/grpc"
	hs "github.com/dmitrijs2005/liberandum/internal/server/http"
)

const oauthStateTTL = 10 * time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	redis   redis.UniversalClient
	http    *hs.Server
	health  *gs.HealthServer
	sweeper *otp.Sweeper
}

// OpenStorage returns the in-memory manager in development mode and a
// connected DynamoDB manager otherwise, creating missing tables when asked.
func OpenStorage(ctx context.Context, c *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if c.DevelopmentMode {
		logger.Warn(ctx, "Development mode: data is kept in memory only")
		return repomanager.NewInMemoryRepositoryManager(c.Tables()), nil
	}

	client, err := dynamo.Connect(ctx, c.DynamoOptions(), logger)
	if err != nil {
		return nil, err
	}
	if c.CreateTables {
		created, err := client.EnsureTables(ctx, c.Tables().Schemas())
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ensure tables: %w", err)
		}
		if len(created) > 0 {
			logger.Info(ctx, "Tables created", "tables", created)
		}
	}
	return repomanager.NewDynamoRepositoryManager(client, c.Tables()), nil
}

// OpenRedis connects to Redis when an address is configured; it returns nil
// otherwise.
func OpenRedis(ctx context.Context, c *config.Config) (redis.UniversalClient, error) {
	if c.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return client, nil
}

// NewLocker serializes per-key work across instances when Redis is present.
func NewLocker(rdb redis.UniversalClient) keylock.Locker {
	if rdb == nil {
		return keylock.NewLocal()
	}
	return keylock.NewRedis(rdb, "lock:", 10*time.Second)
}

func retryPolicy(c *config.Config) common.RetryPolicy {
	p := common.DefaultRetryPolicy
	if c.RetryAttempts > 0 {
		p.Attempts = c.RetryAttempts
	}
	return p
}

// NewSender picks the mail transport. Development mode always logs.
func NewSender(c *config.Config, logger logging.Logger) (mailer.Sender, error) {
	var s mailer.Sender
	switch {
	case c.DevelopmentMode || c.MailProvider == "log":
		return mailer.NewLogSender(logger), nil
	case c.MailProvider == "postmark":
		pm, err := mailer.NewPostmarkSender(c.PostmarkServerToken, c.PostmarkAccountToken, c.MailFrom)
		if err != nil {
			return nil, err
		}
		s = pm
	case c.MailProvider == "smtp":
		s = mailer.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.MailFrom, c.SMTPUser, c.SMTPPassword, c.SMTPTLSMode)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", c.MailProvider)
	}
	return mailer.NewRetrying(s, retryPolicy(c), logger), nil
}

// NewOTPEngine builds the code engine shared by the server and the CLI.
func NewOTPEngine(c *config.Config, repos repomanager.RepositoryManager, sender mailer.Sender, locker keylock.Locker, obs otp.Observer, logger logging.Logger) *otp.Engine {
	return otp.NewEngine(repos.OTP(), sender, locker, logger, otp.Options{
		TTL:      c.OTPValidityDuration,
		Length:   c.OTPLength,
		Observer: obs,
	})
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repos, err := OpenStorage(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	app := &App{config: c, logger: logger, repos: repos}

	app.redis, err = OpenRedis(ctx, c)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	locker := NewLocker(app.redis)

	sender, err := NewSender(c, logger)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	m := metrics.New()
	engine := NewOTPEngine(c, repos, sender, locker, m, logger)
	store := users.NewStore(repos.Users(), locker, logger)
	issuer := auth.NewIssuer(c.SecretKey, c.AccessTokenValidityDuration)
	policy := retryPolicy(c)

	var states oauth.StateStore = oauth.NewMemoryStateStore(oauthStateTTL)
	var limiter ratelimit.Limiter
	if app.redis != nil {
		states = oauth.NewRedisStateStore(app.redis, oauthStateTTL)
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow > 0 {
		if app.redis != nil {
			limiter = ratelimit.NewRedis(app.redis, "rl:", c.RateLimitRequests, c.RateLimitWindow)
		} else {
			limiter = ratelimit.NewMemory(c.RateLimitRequests, c.RateLimitWindow)
		}
	}

	google := oauth.NewGoogle(oauth.Config{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.GoogleRedirectURL,
		Retry:        policy,
	}, states)
	charts := coingecko.New(c.CoinGeckoAPIKey, coingecko.WithRetry(policy))

	// a nil interface, not a typed nil, keeps Backup reporting unavailability
	var exporter services.Exporter
	if c.BackupBucket != "" {
		awsCfg, err := dynamo.LoadAWSConfig(ctx, c.DynamoOptions())
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		exporter = backup.NewS3Exporter(awsCfg, c.BackupBucket, c.AWSEndpointURL)
	}

	app.http = hs.NewServer(c.EndpointAddrHTTP, logger, hs.Deps{
		Auth:           services.NewAuthService(store, engine, issuer, google, logger),
		Guard:          services.NewGuard(issuer, store),
		Profile:        services.NewProfileService(store, logger),
		Market:         services.NewMarketService(repos, charts, c.MarketCacheTTL, logger),
		Data:           services.NewDataService(repos, c.MarketTables()),
		Admin:          services.NewAdminService(store, repos, engine, exporter, logger),
		Google:         google,
		Storage:        repos,
		Limiter:        limiter,
		Metrics:        m,
		CORSOrigins:    c.CORSOrigins,
		RequestTimeout: c.RequestTimeout,
	})
	app.health = gs.NewHealthServer(c.EndpointAddrGRPC, repos, 15*time.Second, logger)
	app.sweeper = otp.NewSweeper(engine, c.OTPSweepInterval, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until a signal arrives or one of the components fails, then
// stops the rest and releases connections.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "development_mode", app.config.DevelopmentMode)

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(ctx) })
	g.Go(func() error { return app.health.Run(ctx) })
	g.Go(func() error { return app.sweeper.Run(ctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "App stopped with error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return errors.Join(err, app.Close())
}

func (app *App) Close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.repos != nil {
		errs = append(errs, app.repos.Close())
	}
	return errors.Join(errs...)
}
