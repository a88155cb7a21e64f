package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func statsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Describe the served index generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd, g)
			if err != nil {
				return err
			}
			defer b.Close()

			stats, err := b.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(cmd, stats)
			}

			cmd.Printf("Generation: %s\n", stats.Generation)
			cmd.Printf("Created:    %s\n", stats.CreatedAt)
			cmd.Printf("Pages:      %d (%d skipped)\n", stats.TotalPages, stats.SkippedPages)
			cmd.Printf("Size:       %s\n", humanBytes(stats.IndexSizeByte))
			cmd.Println()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DOMAIN\tPAGES\tLINKS\tCONVERGED\tMAX AUTHORITY")
			for _, d := range stats.Domains {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%t\t%.4f\n", d.Domain, d.Pages, d.Links, d.Converged, d.MaxScore)
			}
			return tw.Flush()
		},
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
