package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bowerhall/graphcol/internal/logger"
	"github.com/bowerhall/graphcol/internal/schedule"
)

func scheduleCmd() *cobra.Command {
	var (
		o    overrides
		spec string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "schedule [dataset|all]",
		Short: "Re-run ingestion on a cron schedule and serve /metrics and /healthz",
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

			if spec == "" {
				spec = a.cfg.Schedule.Spec
			}
			if spec == "" {
				return fmt.Errorf("no schedule: pass --cron or set GRAPHCOL_SCHEDULE")
			}
			if addr == "" {
				addr = a.cfg.Schedule.MetricsAddr
			}

			// fail fast on a bad selection instead of at the first tick
			if _, err := a.catalog.Select(name); err != nil {
				return err
			}

			runner, err := schedule.NewRunner(spec, a.cfg.Location(), func(ctx context.Context) error {
				sum, err := a.ingest(ctx, name)
				logger.Info("scheduled ingestion finished", "summary", sum.String())
				return err
			})
			if err != nil {
				return err
			}

			go runner.Run(ctx)

			return schedule.Serve(ctx, addr, schedule.NewRouter(runner, a.metrics.Handler(), a.store.Healthy))
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "Cron expression (defaults to GRAPHCOL_SCHEDULE)")
	cmd.Flags().StringVar(&addr, "listen", "", "Address for /metrics and /healthz (defaults to GRAPHCOL_METRICS_ADDR)")
	cmd.Flags().StringVar(&o.policy, "policy", "", "Commit policy on chunk upload failure (best-effort, atomic)")
	cmd.Flags().IntVarP(&o.parallelism, "parallel", "p", 1, "Datasets processed at once")

	return cmd
}
