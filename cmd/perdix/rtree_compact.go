package main

import (
	"fmt"

	"github.com/perdixdb/perdix/internal/metrics"
	"github.com/perdixdb/perdix/rtree"
	"github.com/spf13/cobra"
)

func newRTreeCompactCmd(m *metrics.Metrics) *cobra.Command {
	var path string
	var dest string
	var maxEntries int

	cmd := &cobra.Command{
		Use:   "rtree-compact",
		Short: "Compact an R-tree file into a fresh, denser one",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := rtree.Open(rtree.Options{Path: path, MaxEntries: maxEntries})
			if err != nil {
				return err
			}
			defer tr.Close()

			result, err := tr.Compact(dest)
			if err != nil {
				return err
			}
			m.IncCompactionRuns()
			m.AddBytesSaved(result.BytesSaved)

			fmt.Fprintf(cmd.OutOrStdout(), "oldSize=%d newSize=%d bytesSaved=%d\n",
				result.OldSize, result.NewSize, result.BytesSaved)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "path to the source R-tree file")
	cmd.Flags().StringVar(&dest, "dest", "", "path to write the compacted R-tree file")
	cmd.Flags().IntVar(&maxEntries, "max-entries", 9, "tree max entries per node")
	cmd.MarkFlagRequired("path")
	cmd.MarkFlagRequired("dest")
	return cmd
}
