package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/perdixdb/perdix/rtree"
	"github.com/spf13/cobra"
)

func newDecodeRTreeCmd() *cobra.Command {
	var path string
	var maxEntries int

	cmd := &cobra.Command{
		Use:   "decode-rtree",
		Short: "Dump every live point in an R-tree file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := rtree.Open(rtree.Options{Path: path, MaxEntries: maxEntries})
			if err != nil {
				return err
			}
			defer tr.Close()

			world := rtree.BBox{MinLat: -90, MaxLat: 90, MinLng: -180, MaxLng: 180}
			hits, err := tr.SearchBBox(world)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"objectId", "lat", "lng"})
			for _, h := range hits {
				table.Append([]string{h.ObjectId.String(), fmt.Sprintf("%g", h.Lat), fmt.Sprintf("%g", h.Lng)})
			}
			table.Render()

			fmt.Fprintf(cmd.OutOrStdout(), "size=%d\n", tr.Size())
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "path to the R-tree file")
	cmd.Flags().IntVar(&maxEntries, "max-entries", 9, "tree max entries per node")
	cmd.MarkFlagRequired("path")
	return cmd
}
