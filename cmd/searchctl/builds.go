package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/buildlog"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/postgres"
)

func buildsCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "builds",
		Short: "List recent index builds from the build history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if !cfg.Postgres.Enabled {
				return errors.New("build history needs postgres.enabled")
			}
			db, err := postgres.New(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			store, err := buildlog.NewStore(cmd.Context(), db)
			if err != nil {
				return err
			}
			builds, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(cmd, builds)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSTATUS\tGENERATION\tPAGES\tDOMAINS\tDURATION\tERROR")
			for _, b := range builds {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					b.StartedAt.Format(time.RFC3339), b.Status, b.Generation, b.Pages, b.Domains,
					b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond), b.Error)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of builds to show")
	return cmd
}
