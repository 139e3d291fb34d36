package main

import (
	"fmt"
	"net/http"

	"ferret/config"
	"ferret/httpapi"
	"ferret/logging"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var dataDir, addr, configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			logger, err := logging.New(cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			srv := httpapi.New(cfg, logger)
			defer srv.Close()

			logger.Infow("listening", "addr", cfg.HTTPAddr, "data_dir", cfg.DataDir)
			fmt.Printf("ferret serving on %s (data dir %s)\n", cfg.HTTPAddr, cfg.DataDir)
			return http.ListenAndServe(cfg.HTTPAddr, srv.Router())
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "root directory holding every collection's files")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	return cmd
}
