package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func reloadCmd(g *globalFlags) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Ask a running searcher to serve the generation named by CURRENT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.rpcAddr == "" {
				return errors.New("reload needs --rpc")
			}
			b, err := openBackend(cmd, g)
			if err != nil {
				return err
			}
			defer b.Close()

			resp, err := b.Reload(cmd.Context(), reason)
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(cmd, resp)
			}
			if resp.Swapped {
				cmd.Printf("now serving %s\n", resp.Generation)
			} else {
				cmd.Printf("already serving %s\n", resp.Generation)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "searchctl", "reason recorded in the searcher log")
	return cmd
}
