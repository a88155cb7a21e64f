// Command searchctl is the operator CLI: run queries and inspect the served
// generation, either against a local index directory or a running searcher
// over RPC.
//
// Usage:
//
//	searchctl query 'domain:docs.python.org "list comprehension"' --index data/index
//	searchctl stats --rpc localhost:9091
//	searchctl reload --rpc localhost:9091
//	searchctl builds --config configs/development.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	indexPath  string
	rpcAddr    string
	json       bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "searchctl",
		Short:         "Query and inspect the documentation search index",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&g.indexPath, "index", "", "index root or generation directory (overrides config)")
	root.PersistentFlags().StringVar(&g.rpcAddr, "rpc", "", "searcher RPC address; when set, the local index is not opened")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "print JSON")

	root.AddCommand(queryCmd(g), statsCmd(g), reloadCmd(g), buildsCmd(g))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
