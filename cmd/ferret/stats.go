package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"ferret/collection"
	"ferret/version"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var collectionName, dataDir string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-batch document counts for a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if collectionName == "" {
				return fmt.Errorf("--collection is required")
			}

			col, err := collection.Open(dataDir, collectionName, 4096)
			if err != nil {
				return err
			}
			defer col.Close()

			versions, err := version.List(col.VersionDir())
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Println("no published batches")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tDOCUMENTS\tPRIMARY KEY\tCOMPRESSION")
			var total int64
			for _, id := range versions {
				info, err := version.Read(col.VersionDir(), id)
				if err != nil {
					return err
				}
				total += info.DocumentCount
				pk := info.PrimaryKey
				if pk == "" {
					pk = "-"
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", info.VersionID, info.DocumentCount, pk, info.Compression)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d batches, %d documents total\n", len(versions), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "", "collection name")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "root directory holding every collection's files")
	return cmd
}
