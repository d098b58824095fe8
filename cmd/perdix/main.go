// Command perdix offers non-core inspection and maintenance utilities over
// perdix index files: decoding raw records, dumping a B+ tree or R-tree's
// live contents, and compacting an R-tree file. None of this is part of
// the storage engine itself — every subcommand is a thin consumer of the
// public btree/rtree/record/blockfile APIs.
package main

import (
	"fmt"
	"os"

	"github.com/perdixdb/perdix/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "perdix",
		Short: "Inspection and maintenance utilities for perdix index files",
	}

	m := metrics.New(prometheus.NewRegistry())

	root.AddCommand(newDecodeRecordsCmd())
	root.AddCommand(newDecodeBTreeCmd())
	root.AddCommand(newDecodeRTreeCmd())
	root.AddCommand(newRTreeCompactCmd(m))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
