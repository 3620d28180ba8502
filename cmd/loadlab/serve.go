package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seantiz/loadlab/internal/api"
	"github.com/seantiz/loadlab/internal/config"
	"github.com/seantiz/loadlab/internal/ingest"
	"github.com/seantiz/loadlab/internal/metrics"
	"github.com/seantiz/loadlab/internal/simulator"
	"github.com/seantiz/loadlab/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long:  `Start the HTTP service and block until SIGINT or SIGTERM.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	// Bare "loadlab" serves with config and env settings only.
	rootCmd.RunE = runServe
	rootCmd.Args = cobra.NoArgs

	serveCmd.Flags().String("listen", "", "listen address (default :8000)")
	serveCmd.Flags().String("log-level", "", "service log level: debug, info, warn or error")
	serveCmd.Flags().String("client-log-format", "", "client log output format: json or text")
	serveCmd.Flags().String("job-timeout", "", "upper bound on any single job, e.g. 45s (0 disables)")
	serveCmd.Flags().Uint64("seed", 0, "seed for the unstable job's random source (0 seeds from time)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"listen_addr":       "listen",
		"log_level":         "log-level",
		"client_log_format": "client-log-format",
		"job_timeout":       "job-timeout",
		"random_seed":       "seed",
	})
	if err != nil {
		return err
	}

	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	logger.Info("loadlab: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"job_timeout", cfg.JobTimeout.String(),
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var simOpts []simulator.Option
	if cfg.RandomSeed != 0 {
		simOpts = append(simOpts, simulator.WithSeed(cfg.RandomSeed))
	}

	broker := ingest.NewBroker()

	srv := api.NewServer(api.Options{
		Addr:       cfg.ListenAddr,
		Store:      db,
		Metrics:    metrics.NewRegistry(),
		Simulator:  simulator.New(logger, simOpts...),
		Sink:       ingest.NewSink(os.Stdout, cfg.ClientLogFormat, broker),
		Broker:     broker,
		Logger:     logger,
		JobTimeout: cfg.JobTimeout,
	})

	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
