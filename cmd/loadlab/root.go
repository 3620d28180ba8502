package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seantiz/loadlab/internal/config"
	"github.com/seantiz/loadlab/internal/store"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:           "loadlab",
	Short:         "Workload simulation and request metrics service",
	Long:          `loadlab serves synthetic CPU, unreliable and batch workloads over HTTP and exports per-request latency metrics in Prometheus format.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("db", "", "path to the job ledger database")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format for ledger commands: table or json")
}

// loadConfig merges defaults, the config file, LOADLAB_* variables and any
// flags the command set explicitly.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (config.Config, error) {
	v := config.NewViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	bindings["db_path"] = "db"
	if err := bindFlags(v, cmd, bindings); err != nil {
		return config.Config{}, err
	}
	return config.FromViper(v)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, bindings map[string]string) error {
	for key, name := range bindings {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// openLedger opens the job ledger named by the resolved config.
func openLedger(cmd *cobra.Command) (*store.SQLiteStore, error) {
	cfg, err := loadConfig(cmd, map[string]string{})
	if err != nil {
		return nil, err
	}
	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return db, nil
}

func isJSONOutput() bool {
	return outputFormat == "json"
}
