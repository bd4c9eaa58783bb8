package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atlekbai/abstract_sql/internal/ddl"
	"github.com/atlekbai/abstract_sql/internal/dialect"
	"github.com/atlekbai/abstract_sql/internal/optimizer"
	"github.com/atlekbai/abstract_sql/internal/schema"
)

var (
	schemaEngines    []string
	schemaDrop       bool
	schemaNoOptimize bool
	schemaRules      bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema <model.json|model.yaml>",
	Short: "Generate DDL for a model",
	Long: `Schema optimizes a model and prints the statements that create it.

With --engines the same model is compiled for several engines at once;
each engine's output is headed by a comment naming it.

Example:
  abstractsql schema model.yaml
  abstractsql schema model.json --engines postgres,websql --drop`,
	Args: cobra.ExactArgs(1),
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringSliceVar(&schemaEngines, "engines", nil, "compile for several engines")
	schemaCmd.Flags().BoolVar(&schemaDrop, "drop", false, "print the drop statements instead")
	schemaCmd.Flags().BoolVar(&schemaNoOptimize, "no-optimize", false, "skip rule and computed field rewriting")
	schemaCmd.Flags().BoolVar(&schemaRules, "rules", false, "also print runtime rules as comments")
}

func runSchema(cmd *cobra.Command, args []string) error {
	model, err := schema.Load(args[0])
	if err != nil {
		return err
	}
	if !schemaNoOptimize {
		res := optimizer.Optimize(model, cfg.OptimizerOptions())
		logger.Info("optimized",
			slog.Int("computed_fields", res.ComputedFields),
			slog.Int("checks", res.Checks),
			slog.Int("unique_indexes", res.UniqueIndexes),
			slog.Int("runtime_rules", res.RuntimeRules))
	}

	engines, err := schemaTargets()
	if err != nil {
		return err
	}

	// The model is only read from here on, so engines compile in parallel.
	results := make([]*ddl.SQLModel, len(engines))
	var g errgroup.Group
	for i, e := range engines {
		i, e := i, e
		g.Go(func() error {
			out, err := ddl.CompileSchema(model, e, cfg.DDLOptions())
			if err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for i, e := range engines {
		out := results[i]
		logger.Debug("schema compiled",
			slog.String("engine", string(e.Name())),
			slog.Int("create", len(out.CreateSchema)),
			slog.Int("drop", len(out.DropSchema)),
			slog.Int("rules", len(out.Rules)))
		if len(engines) > 1 {
			fmt.Fprintf(w, "-- engine: %s\n", e.Name())
		}
		stmts := out.CreateSchema
		if schemaDrop {
			stmts = out.DropSchema
		}
		for _, s := range stmts {
			fmt.Fprintf(w, "%s\n\n", s)
		}
		if schemaRules {
			for _, r := range out.Rules {
				fmt.Fprintf(w, "-- rule: %s\n-- %s\n\n", r.StructuredEnglish,
					strings.ReplaceAll(r.SQL, "\n", "\n-- "))
			}
		}
	}
	return nil
}

func schemaTargets() ([]dialect.Engine, error) {
	if len(schemaEngines) == 0 {
		e, err := cfg.Dialect()
		if err != nil {
			return nil, err
		}
		return []dialect.Engine{e}, nil
	}
	engines := make([]dialect.Engine, 0, len(schemaEngines))
	for _, name := range schemaEngines {
		e, err := dialect.Lookup(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		engines = append(engines, e)
	}
	return engines, nil
}
