// Command ferret is the engine's CLI: serve runs the HTTP front end,
// ingest/query/stats/compact operate on a collection directly against the
// on-disk stores, without going through a running server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "ferret",
		Short: "ferret — document indexing and retrieval engine",
	}

	root.AddCommand(
		serveCmd(),
		ingestCmd(),
		queryCmd(),
		statsCmd(),
		compactCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
