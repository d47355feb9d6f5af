package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mergectx/internal/config"
)

var (
	flagConfig string
	flagDB     string
	flagRepo   string
)

var rootCmd = &cobra.Command{
	Use:   "mergectx",
	Short: "Index repository snapshots and retrieve similar code for merge context",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default <repo>/mergectx.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "vector database path (default <repo>/.mergectx/index.db)")
	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", ".", "repository path")
}

// loadConfig resolves the effective configuration for a repository root,
// applying the --db override and anchoring relative paths at the root.
func loadConfig(root string) (config.Config, error) {
	path := flagConfig
	if path == "" {
		path = filepath.Join(root, config.DefaultFileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		cfg.Store.Path = flagDB
	}
	if !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(root, cfg.Store.Path)
	}
	return cfg, nil
}
