package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bowerhall/graphcol/internal/logger"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "graphcol-loader"

func init() {
	godotenv.Load()
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Load knowledge-graph datasets into the lakehouse as graphcol chunks",
		Long: `graphcol-loader streams edge and label files into fixed-size chunks of
triples, uploads them to an S3-compatible bucket and writes one manifest per
dataset under datasets/<name>/index.json.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logFormat != "" {
				if err := logger.Configure(os.Stderr, logFormat); err != nil {
					return err
				}
			}
			if logLevel != "" {
				return logger.SetLevel(logLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json); defaults to GRAPHCOL_LOG_FORMAT")

	cmd.AddCommand(
		ingestCmd(),
		inspectCmd(),
		historyCmd(),
		scheduleCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}
