package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bowerhall/graphcol/internal/ledger"
)

func historyCmd() *cobra.Command {
	var (
		path    string
		dataset string
		limit   int
		chunks  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent ingestion runs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = os.Getenv("GRAPHCOL_LEDGER")
			}
			if path == "" {
				path = "graphcol.db"
			}

			store, err := ledger.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if chunks != "" {
				recs, err := store.Chunks(chunks)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "SEQ\tSTATUS\tTRIPLES\tSIZE\tTOOK\tPATH\tERROR")
				for _, c := range recs {
					fmt.Fprintf(w, "%06d\t%s\t%s\t%s\t%s\t%s\t%s\n",
						c.Seq, c.Status, humanize.Comma(int64(c.Triples)), humanize.IBytes(uint64(c.Bytes)),
						c.Duration.Round(time.Millisecond), c.Path, c.Error)
				}
				return w.Flush()
			}

			runs, err := store.Runs(dataset, limit)
			if err != nil {
				return err
			}

			fmt.Fprintln(w, "TX\tDATASET\tSTATUS\tSTARTED\tTRIPLES\tCHUNKS\tFAILED\tPOLICY")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					r.TxID, r.Dataset, r.Status, humanize.Time(r.StartedAt),
					humanize.Comma(r.TotalTriples), r.TotalChunks, r.FailedChunks, r.Policy)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&path, "ledger", "", "Ledger database (defaults to GRAPHCOL_LEDGER or graphcol.db)")
	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "Only show runs of this dataset")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&chunks, "chunks", "", "Show the chunk attempts of this transaction id")

	return cmd
}
