// Package ctl implements liberandumctl, the operator command line for the
// Liberandum API: table provisioning, OTP housekeeping and user
// administration against the same storage the server uses.
package ctl

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server"
	"github.com/dmitrijs2005/liberandum/internal/server/config"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

// Deps are the openers the commands use. Zero fields fall back to the
// production implementations.
type Deps struct {
	Config  func() (*config.Config, error)
	Logger  func(c *config.Config) logging.Logger
	Storage func(ctx context.Context, c *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error)
	Dynamo  func(ctx context.Context, c *config.Config, logger logging.Logger) (*dynamo.Client, error)
}

func (d Deps) withDefaults() Deps {
	if d.Config == nil {
		d.Config = config.LoadConfig
	}
	if d.Storage == nil {
		d.Storage = server.OpenStorage
	}
	if d.Dynamo == nil {
		d.Dynamo = openDynamo
	}
	return d
}

func openDynamo(ctx context.Context, c *config.Config, logger logging.Logger) (*dynamo.Client, error) {
	if c.DevelopmentMode {
		return nil, fmt.Errorf("%w: table commands need DynamoDB, drop --dev", common.ErrorInvalidArgument)
	}
	return dynamo.Connect(ctx, c.DynamoOptions(), logger)
}

// session is the state shared by the commands of one invocation.
type session struct {
	deps   Deps
	config *config.Config
	logger logging.Logger
}

func (s *session) load(cmd *cobra.Command) error {
	c, err := s.deps.Config()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s.config = c
	if s.deps.Logger != nil {
		s.logger = s.deps.Logger(c)
	} else {
		s.logger = logging.New(cmd.ErrOrStderr(), c.LogFormat, c.LogLevel)
	}
	return nil
}

// withStorage opens the repositories for the duration of fn.
func (s *session) withStorage(ctx context.Context, fn func(repomanager.RepositoryManager) error) (err error) {
	repos, err := s.deps.Storage(ctx, s.config, s.logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { err = errors.Join(err, repos.Close()) }()
	return fn(repos)
}

func (s *session) withDynamo(ctx context.Context, fn func(*dynamo.Client) error) (err error) {
	client, err := s.deps.Dynamo(ctx, s.config, s.logger)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { err = errors.Join(err, client.Close()) }()
	return fn(client)
}

// NewRootCommand builds the liberandumctl command tree.
//
// The bootstrap flags are declared here so cobra accepts them; their values
// are read by config.LoadConfig together with the environment and the JSON
// file, the same way the server reads them.
func NewRootCommand(deps Deps) *cobra.Command {
	s := &session{deps: deps.withDefaults()}

	root := &cobra.Command{
		Use:           "liberandumctl",
		Short:         "Liberandum API operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.load(cmd)
		},
	}
	root.PersistentFlags().Bool("dev", false, "use in-memory storage")
	root.PersistentFlags().StringP("config", "c", "", "JSON config file")
	root.PersistentFlags().String("env-file", "", "dotenv file")

	root.AddCommand(tablesCommand(s), otpCommand(s), usersCommand(s))
	return root
}
