package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/config"
	"github.com/dmitrijs2005/liberandum/internal/server/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DevelopmentMode = true
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	return c
}

func TestApp_RunsAndStopsInDevelopmentMode(t *testing.T) {
	app, err := NewApp(context.Background(), devConfig(), logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("app exited early: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	c := devConfig()
	c.SecretKey = ""
	_, err := NewApp(context.Background(), c, logging.NewNop())
	assert.Error(t, err)
}

func TestNewSender(t *testing.T) {
	c := devConfig()
	s, err := NewSender(c, logging.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &mailer.LogSender{}, s)

	c.DevelopmentMode = false
	c.MailProvider = "smtp"
	s, err = NewSender(c, logging.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &mailer.Retrying{}, s)

	c.MailProvider = "pigeon"
	_, err = NewSender(c, logging.NewNop())
	assert.Error(t, err)
}

func TestOpenRedis_SkippedWithoutAddress(t *testing.T) {
	rdb, err := OpenRedis(context.Background(), devConfig())
	require.NoError(t, err)
	assert.Nil(t, rdb)
}
