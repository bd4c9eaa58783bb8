// Package main provides the abstractsql CLI: it compiles AbstractSQL trees
// and schema models to SQL for postgres, mysql and websql.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlekbai/abstract_sql/internal/config"
)

var (
	// configFile is set by the --config flag.
	configFile string

	v      = config.New()
	cfg    *config.Config
	logger = slog.Default()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "abstractsql",
	Short: "Compile AbstractSQL trees and models to SQL",
	Long: `abstractsql compiles the AbstractSQL tagged-tree representation into SQL
for postgres, mysql and websql, and turns schema models into DDL after
rewriting rules into CHECK constraints and partial unique indexes.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./abstractsql.yaml)")
	flags.String("engine", "", "target engine: postgres, mysql or websql")
	flags.String("namespace", "", "schema that qualifies bare table names and created objects")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	mustBind(config.KeyEngine, "engine")
	mustBind(config.KeyNamespace, "namespace")
	mustBind(config.KeyLogLevel, "log-level")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(slugCmd)
}

func mustBind(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// loadConfig merges file, environment and flags, then sets up logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.ReadFile(v, configFile); err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, err := c.Level()
	if err != nil {
		return err
	}
	cfg = c
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	logger.Debug("config loaded",
		slog.String("engine", cfg.Engine),
		slog.String("namespace", cfg.Namespace),
		slog.String("file", v.ConfigFileUsed()))
	return nil
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
