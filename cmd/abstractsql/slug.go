package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
	"github.com/atlekbai/abstract_sql/internal/normalize"
	"github.com/atlekbai/abstract_sql/internal/optimizer"
)

var slugRaw bool

var slugCmd = &cobra.Command{
	Use:   "slug <table> <body.json|->",
	Short: "Print the constraint name for a rule body",
	Long: `Slug prints the content-addressed name the optimizer gives a constraint
derived from a rule body on table. The body may be given inline.

Example:
  abstractsql slug pilot body.json
  abstractsql slug pilot '["NotExists",["SelectQuery",["Select",[]],["From",["Table","pilot"]]]]'`,
	Args: cobra.ExactArgs(2),
	RunE: runSlug,
}

func init() {
	slugCmd.Flags().BoolVar(&slugRaw, "raw", false, "hash the body without normalizing it first")
}

func runSlug(cmd *cobra.Command, args []string) error {
	data := []byte(args[1])
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		var err error
		if data, err = readInput(cmd, args[1]); err != nil {
			return err
		}
	}
	body, err := abstractsql.Parse(data)
	if err != nil {
		return err
	}
	if !slugRaw {
		body = normalize.Normalize(body)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), optimizer.Slug(args[0], body))
	return err
}
