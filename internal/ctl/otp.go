package ctl

import (
	"fmt"

	"github.com/dmitrijs2005/liberandum/internal/server"
	"github.com/dmitrijs2005/liberandum/internal/server/mailer"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

func otpCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "One-time code housekeeping",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete expired codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withStorage(cmd.Context(), func(repos repomanager.RepositoryManager) error {
				// sweeping never sends mail
				engine := server.NewOTPEngine(s.config, repos, mailer.NewLogSender(s.logger), server.NewLocker(nil), nil, s.logger)
				n, err := engine.SweepExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired codes\n", n)
				return nil
			})
		},
	})

	return cmd
}
