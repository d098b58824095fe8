package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/perdixdb/perdix/blockfile"
	"github.com/perdixdb/perdix/record"
	"github.com/spf13/cobra"
)

func newDecodeRecordsCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "decode-records",
		Short: "Dump every top-level record in a BlockFile",
		RunE: func(cmd *cobra.Command, args []string) error {
			bf, err := blockfile.Open(path, blockfile.ReadOnly)
			if err != nil {
				return err
			}
			defer bf.Close()

			scanner, err := bf.Scan()
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"offset", "size", "value"})

			for {
				v, offset, ok := scanner.Next()
				if !ok {
					break
				}
				enc, encErr := record.Encode(v)
				size := 0
				if encErr == nil {
					size = len(enc)
				}
				table.Append([]string{fmt.Sprint(offset), fmt.Sprint(size), v.String()})
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "path to the BlockFile")
	cmd.MarkFlagRequired("path")
	return cmd
}
