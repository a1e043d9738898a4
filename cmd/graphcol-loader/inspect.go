package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bowerhall/graphcol/internal/config"
	"github.com/bowerhall/graphcol/internal/graphcol"
	"github.com/bowerhall/graphcol/internal/triple"
)

func inspectCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "inspect <chunk-file|object-path>",
		Short: "Decode a .graphcol chunk and print what it holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readChunk(cmd.Context(), args[0], remote)
			if err != nil {
				return err
			}

			chunk, err := graphcol.Decode(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			tags := make(map[triple.Tag]int)
			txs := make(map[string]int)
			for _, t := range chunk.Triples {
				tags[t.O.Tag()]++
				txs[t.TX]++
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "file\t%s\n", args[0])
			fmt.Fprintf(w, "size\t%s\n", humanize.IBytes(uint64(len(data))))
			fmt.Fprintf(w, "blake3\t%s\n", graphcol.Checksum(data))
			fmt.Fprintf(w, "version\t%d\n", chunk.Version)
			fmt.Fprintf(w, "namespace\t%s\n", chunk.Namespace)
			fmt.Fprintf(w, "triples\t%s\n", humanize.Comma(int64(len(chunk.Triples))))

			keys := make([]triple.Tag, 0, len(tags))
			for k := range tags {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
			for _, k := range keys {
				fmt.Fprintf(w, "tag %d (%s)\t%s\n", k, tagName(k), humanize.Comma(int64(tags[k])))
			}

			for tx, n := range txs {
				fmt.Fprintf(w, "tx %s\t%s\n", tx, humanize.Comma(int64(n)))
			}

			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Read the object path from the configured bucket or output directory")

	return cmd
}

func readChunk(ctx context.Context, name string, remote bool) ([]byte, error) {
	if !remote {
		return os.ReadFile(name)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return store.Get(ctx, name)
}

func tagName(t triple.Tag) string {
	switch t {
	case triple.TagString:
		return "string"
	case triple.TagRef:
		return "entity"
	default:
		return "opaque"
	}
}
