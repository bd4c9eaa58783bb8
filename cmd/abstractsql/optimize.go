package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/atlekbai/abstract_sql/internal/optimizer"
	"github.com/atlekbai/abstract_sql/internal/schema"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <model.json|model.yaml>",
	Short: "Print the optimized model",
	Long: `Optimize expands computed fields, rewrites rules into CHECK constraints
and partial unique indexes where possible, and prints the resulting model
as JSON. Rules that could not be rewritten are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func runOptimize(cmd *cobra.Command, args []string) error {
	model, err := schema.Load(args[0])
	if err != nil {
		return err
	}
	rules := len(model.Rules)
	res := optimizer.Optimize(model, cfg.OptimizerOptions())
	logger.Info("optimized",
		slog.String("model", args[0]),
		slog.Int("rules", rules),
		slog.Int("computed_fields", res.ComputedFields),
		slog.Int("checks", res.Checks),
		slog.Int("unique_indexes", res.UniqueIndexes),
		slog.Int("runtime_rules", res.RuntimeRules))
	return writeJSON(cmd, model)
}
