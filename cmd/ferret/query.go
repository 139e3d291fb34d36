package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"ferret/collection"
	"ferret/engine"

	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	var collectionName, q, dataDir string
	var limit int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query against a collection and print the ranked results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if collectionName == "" || q == "" {
				return fmt.Errorf("--collection and --query are required")
			}

			col, err := collection.Open(dataDir, collectionName, 4096)
			if err != nil {
				return err
			}
			defer col.Close()

			ev := engine.New(col)
			results, err := ev.Evaluate(q, limit)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOC ID\tSCORE")
			for _, r := range results {
				fmt.Fprintf(w, "%d\t%.4f\n", r.DocID, r.Score)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "", "collection name")
	cmd.Flags().StringVar(&q, "query", "", "query string")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "root directory holding every collection's files")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results (0 for unbounded)")
	return cmd
}
