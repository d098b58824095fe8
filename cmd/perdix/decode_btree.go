package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/perdixdb/perdix/btree"
	"github.com/spf13/cobra"
)

func newDecodeBTreeCmd() *cobra.Command {
	var path string
	var order int

	cmd := &cobra.Command{
		Use:   "decode-btree",
		Short: "Dump every live key/value binding in a B+ tree file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := btree.Open(btree.Options{Path: path, Order: order})
			if err != nil {
				return err
			}
			defer tr.Close()

			entries, err := tr.ToArray()
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"key", "value"})
			for _, kv := range entries {
				table.Append([]string{kv.Key.String(), kv.Value.String()})
			}
			table.Render()

			height, err := tr.GetHeight()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "size=%d height=%d version=%d\n", tr.Size(), height, tr.Version())
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "path to the B+ tree file")
	cmd.Flags().IntVar(&order, "order", 32, "tree order (branching factor)")
	cmd.MarkFlagRequired("path")
	return cmd
}
