package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var o overrides

	cmd := &cobra.Command{
		Use:   "ingest [dataset|all]",
		Short: "Load one dataset, or every dataset in the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "all"
			if len(args) == 1 {
				name = args[0]
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, o)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.ingest(ctx, name)
			if len(sum.Results) > 0 {
				fmt.Fprint(cmd.OutOrStdout(), "\n"+sum.String())
			}
			return err
		},
	}

	cmd.Flags().StringVar(&o.policy, "policy", "", "Commit policy on chunk upload failure (best-effort, atomic)")
	cmd.Flags().IntVar(&o.chunkSize, "chunk-size", 0, "Triples per chunk (overrides GRAPHCOL_CHUNK_SIZE)")
	cmd.Flags().IntVarP(&o.parallelism, "parallel", "p", 1, "Datasets processed at once")

	return cmd
}
