package ctl

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/dynamo"
	"github.com/spf13/cobra"
)

func tablesCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Provision and inspect DynamoDB tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the configured tables that do not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withDynamo(cmd.Context(), func(c *dynamo.Client) error {
				created, err := c.EnsureTables(cmd.Context(), s.config.Tables().Schemas())
				for _, name := range created {
					fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
				}
				if err != nil {
					return err
				}
				if len(created) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "all tables exist")
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show every configured table with its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withDynamo(cmd.Context(), func(c *dynamo.Client) error {
				existing, err := c.TableNames(cmd.Context())
				if err != nil {
					return err
				}
				have := make(map[string]bool, len(existing))
				for _, n := range existing {
					have[n] = true
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tSTATUS\tITEMS\tBYTES\tINDEXES")
				for _, schema := range s.config.Tables().Schemas() {
					if !have[schema.Name] {
						fmt.Fprintf(tw, "%s\tMISSING\t-\t-\t-\n", schema.Name)
						continue
					}
					info, err := c.DescribeTable(cmd.Context(), schema.Name)
					if errors.Is(err, common.ErrorNotFound) {
						fmt.Fprintf(tw, "%s\tMISSING\t-\t-\t-\n", schema.Name)
						continue
					}
					if err != nil {
						return err
					}
					indexes := strings.Join(info.Indexes, ",")
					if indexes == "" {
						indexes = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", info.Name, info.Status, info.ItemCount, info.SizeBytes, indexes)
				}
				return tw.Flush()
			})
		},
	})

	return cmd
}
