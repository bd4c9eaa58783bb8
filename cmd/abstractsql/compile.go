package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
	"github.com/atlekbai/abstract_sql/internal/compiler"
)

var compileCmd = &cobra.Command{
	Use:   "compile <tree.json|->",
	Short: "Compile a query or value tree",
	Long: `Compile reads one AbstractSQL tree and prints its statements as JSON.
An UpsertQuery prints two statements; any other tree prints one.

Example:
  abstractsql compile query.json
  echo '["SelectQuery",["Select",[]]]' | abstractsql compile - --engine websql`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

type statementJSON struct {
	Query    string  `json:"query"`
	Bindings [][]any `json:"bindings"`
}

func runCompile(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	tree, err := abstractsql.Parse(data)
	if err != nil {
		return err
	}
	engine, err := cfg.Dialect()
	if err != nil {
		return err
	}

	var opts []compiler.Option
	if cfg.Namespace != "" {
		opts = append(opts, compiler.WithNamespace(cfg.Namespace))
	}
	stmts, err := compiler.Compile(engine, tree, opts...)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	logger.Info("compiled", slog.String("engine", string(engine.Name())), slog.Int("statements", len(stmts)))

	out := make([]statementJSON, len(stmts))
	for i, s := range stmts {
		out[i] = statementJSON{Query: s.Query, Bindings: encodeBindings(s.Bindings)}
	}
	return writeJSON(cmd, out)
}

// encodeBindings renders bindings as [kind, value] pairs. Column references
// become [table, field].
func encodeBindings(bindings []compiler.Binding) [][]any {
	out := make([][]any, len(bindings))
	for i, b := range bindings {
		value := b.Value
		if ref, ok := value.(compiler.ColumnRef); ok {
			value = []string{ref.Table, ref.Field}
		}
		out[i] = []any{string(b.Kind), value}
	}
	return out
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
