package main

import (
	"bytes"
	"fmt"
	"path/filepath"

	"ferret/collection"
	"ferret/fetcher"
	"ferret/logging"
	"ferret/media"
	"ferret/session"
	"ferret/version"

	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var collectionName, filePath, dataDir, primaryKey string
	var workers int
	var compress bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Bulk-ingest a JSON or CSV file (local path or http(s) URL) into a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if collectionName == "" || filePath == "" {
				return fmt.Errorf("--collection and --file are required")
			}

			mediaType, err := mediaTypeForExt(filePath)
			if err != nil {
				return err
			}

			data, err := fetcher.Fetch(filePath)
			if err != nil {
				return err
			}

			registry := media.NewRegistry()
			decoder, err := registry.Lookup(mediaType)
			if err != nil {
				return err
			}
			records, err := decoder.Decode(bytes.NewReader(data))
			if err != nil {
				return err
			}

			col, err := collection.Open(dataDir, collectionName, 4096)
			if err != nil {
				return err
			}
			defer col.Close()

			sess, err := session.Open(col, session.Config{
				ModelBuilderWorkers: workers,
				CompressBodies:      compress,
				IdenticalAngle:      0.999,
				FoldAngle:           0.8,
			}, logging.Nop())
			if err != nil {
				return err
			}
			defer sess.Close()

			for _, rec := range records {
				if _, err := sess.Ingest(rec); err != nil {
					return err
				}
			}

			versionID, err := version.Next(col.VersionDir())
			if err != nil {
				return err
			}
			if err := sess.Flush(col.VersionDir(), versionID); err != nil {
				return err
			}
			if err := sess.Commit(col.VersionDir(), versionID, int64(len(records)), primaryKey); err != nil {
				return err
			}

			fmt.Printf("ingested %d records into %q as version %d\n", len(records), collectionName, versionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "", "collection name")
	cmd.Flags().StringVar(&filePath, "file", "", "path to a JSON or CSV file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "root directory holding every collection's files")
	cmd.Flags().StringVar(&primaryKey, "primary-key", "", "field name later batches shadow earlier ones on")
	cmd.Flags().IntVar(&workers, "workers", 4, "model-builder worker pool size")
	cmd.Flags().BoolVar(&compress, "compress", false, "snappy-compress doc-map and value bodies appended by this batch")
	return cmd
}

func mediaTypeForExt(path string) (string, error) {
	switch filepath.Ext(path) {
	case ".json":
		return "application/json", nil
	case ".csv":
		return "text/csv", nil
	default:
		return "", fmt.Errorf("cannot infer media type from %s: use a .json or .csv file", path)
	}
}
