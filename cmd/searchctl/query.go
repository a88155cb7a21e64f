package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/proto"
)

func queryCmd(g *globalFlags) *cobra.Command {
	var page, count int
	cmd := &cobra.Command{
		Use:   "query <query>...",
		Short: "Run a search query",
		Long: `Runs a query with the full syntax: bare keywords, "exact phrases",
domain:host (or site:host) restrictions and code:identifier or
` + "`backtick`" + ` code search.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd, g)
			if err != nil {
				return err
			}
			defer b.Close()

			resp, err := b.Search(cmd.Context(), proto.SearchRequest{
				Query: strings.Join(args, " "),
				Page:  page,
				Count: count,
			})
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(cmd, resp)
			}
			printResults(cmd, resp)
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 0, "zero-based result page")
	cmd.Flags().IntVarP(&count, "count", "n", 10, "results per page")
	return cmd
}

func printResults(cmd *cobra.Command, resp *proto.SearchResponse) {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return
	}
	cmd.Printf("%d matches (generation %s, %.1fms)\n\n", resp.TotalHits, resp.Generation, resp.LatencyMs)
	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		cmd.Printf("  [%d] %s (%.4f)\n", resp.Page*resp.Count+i+1, title, r.Score)
		cmd.Printf("      %s\n", r.URL)
		if r.Snippet != "" {
			cmd.Printf("      %s\n", emphasize(r))
		}
		cmd.Println()
	}
}

// emphasize marks highlight spans with asterisks for terminal output.
func emphasize(r proto.SearchResult) string {
	var sb strings.Builder
	last := 0
	for _, h := range r.Highlights {
		sb.WriteString(r.Snippet[last:h.Start])
		sb.WriteString("*")
		sb.WriteString(r.Snippet[h.Start:h.End])
		sb.WriteString("*")
		last = h.End
	}
	sb.WriteString(r.Snippet[last:])
	return strings.Join(strings.Fields(sb.String()), " ")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
