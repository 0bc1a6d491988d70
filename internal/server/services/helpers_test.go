package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/auth"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/dmitrijs2005/liberandum/internal/server/keylock"
	"github.com/dmitrijs2005/liberandum/internal/server/mailer"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/oauth"
	"github.com/dmitrijs2005/liberandum/internal/server/otp"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/liberandum/internal/server/users"
	"github.com/stretchr/testify/require"
)

var testTables = dynamo.Tables{
	Users:         "users",
	OTP:           "otp",
	Tokens:        "tokens",
	TokenStats:    "token_stats",
	Exchanges:     "exchanges",
	ExchangeStats: "exchange_stats",
	TokenPlatform: "token_platform",
}

type captureSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

func (c *captureSender) lastCode(t *testing.T, to string) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].To != to {
			continue
		}
		m := codeRe.FindStringSubmatch(c.sent[i].Text)
		require.Len(t, m, 2)
		return m[1]
	}
	t.Fatalf("no code sent to %s", to)
	return ""
}

type fakeGoogle struct {
	identity oauth.Identity
	err      error
	codes    []string
	creds    []string
}

func (f *fakeGoogle) Exchange(_ context.Context, code string) (oauth.Identity, error) {
	f.codes = append(f.codes, code)
	return f.identity, f.err
}

func (f *fakeGoogle) VerifyIDToken(_ context.Context, credential string) (oauth.Identity, error) {
	f.creds = append(f.creds, credential)
	return f.identity, f.err
}

type fixture struct {
	repos   *repomanager.InMemoryRepositoryManager
	store   *users.Store
	engine  *otp.Engine
	sender  *captureSender
	issuer  *auth.Issuer
	google  *fakeGoogle
	auth    *AuthService
	guard   *Guard
	profile *ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewNop()
	locker := keylock.NewLocal()
	f := &fixture{
		repos:  repomanager.NewInMemoryRepositoryManager(testTables),
		sender: &captureSender{},
		issuer: auth.NewIssuer("test-secret", 15*time.Minute),
		google: &fakeGoogle{},
	}
	f.store = users.NewStore(f.repos.Users(), locker, logger)
	f.engine = otp.NewEngine(f.repos.OTP(), f.sender, locker, logger, otp.Options{TTL: 10 * time.Minute, Length: 6})
	f.auth = NewAuthService(f.store, f.engine, f.issuer, f.google, logger)
	f.guard = NewGuard(f.issuer, f.store)
	f.profile = NewProfileService(f.store, logger)
	return f
}

// registered creates a verified user and returns its session.
func (f *fixture) registered(t *testing.T, email, name string) (*TokenPair, *models.User) {
	t.Helper()
	ctx := context.Background()
	_, err := f.auth.Register(ctx, email, name, "pw12345678")
	require.NoError(t, err)
	pair, user, err := f.auth.VerifyRegistration(ctx, email, f.sender.lastCode(t, email))
	require.NoError(t, err)
	return pair, user
}

func (f *fixture) withRole(t *testing.T, user *models.User, role models.Role) {
	t.Helper()
	_, err := f.store.SetRole(context.Background(), user.ID, string(role))
	require.NoError(t, err)
}
