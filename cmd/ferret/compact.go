package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ferret/collection"

	"github.com/spf13/cobra"
)

// compactCmd reclaims the per-key trie/vector-tree files a write session
// leaves behind when it crashes between Flush and Commit: since Commit
// writes the batch-info (`.ix`) file last, any `<version-id>.*` file whose
// version-id never got a matching `.ix` belongs to a batch that was never
// published and will never be read.
func compactCmd() *cobra.Command {
	var collectionName, dataDir string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Reclaim orphaned files left by batches that never published",
		RunE: func(cmd *cobra.Command, args []string) error {
			if collectionName == "" {
				return fmt.Errorf("--collection is required")
			}

			col, err := collection.Open(dataDir, collectionName, 4096)
			if err != nil {
				return err
			}
			defer col.Close()

			dir := col.VersionDir()
			entries, err := os.ReadDir(dir)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("nothing to compact")
					return nil
				}
				return err
			}

			published := map[int64]bool{}
			byVersion := map[int64][]string{}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				name := e.Name()
				versionID, ok := leadingVersionID(name)
				if !ok {
					continue
				}
				byVersion[versionID] = append(byVersion[versionID], name)
				if strings.HasSuffix(name, ".ix") && !strings.Contains(strings.TrimSuffix(name, ".ix"), ".") {
					published[versionID] = true
				}
			}

			var reclaimed int64
			var removed int
			for versionID, names := range byVersion {
				if published[versionID] {
					continue
				}
				for _, name := range names {
					path := filepath.Join(dir, name)
					if info, err := os.Stat(path); err == nil {
						reclaimed += info.Size()
					}
					if dryRun {
						fmt.Printf("would remove %s\n", path)
						continue
					}
					if err := os.Remove(path); err != nil {
						return err
					}
					removed++
				}
			}

			if dryRun {
				fmt.Printf("%d bytes across unpublished batches would be reclaimed\n", reclaimed)
				return nil
			}
			fmt.Printf("removed %d orphaned files, reclaimed %d bytes\n", removed, reclaimed)
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "", "collection name")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "root directory holding every collection's files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without removing it")
	return cmd
}

// leadingVersionID parses the version-id prefix shared by every per-batch
// file name: "<version-id>.ix", "<version-id>.<key-id>.tri", etc.
func leadingVersionID(name string) (int64, bool) {
	dot := strings.IndexByte(name, '.')
	if dot < 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(name[:dot], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
