package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/abstract_sql/internal/compiler"
)

// run executes the root command with a fresh output buffer. Flags keep their
// values between runs, so every test names the engine it wants; the namespace
// and the schema engine list are reset here.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	require.NoError(t, rootCmd.PersistentFlags().Set("namespace", ""))
	schemaEngines = nil
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCompileFromStdin(t *testing.T) {
	out, err := run(t, `["SelectQuery",["Select",[]],["From",["Table","t"]],["Where",["Equals",["Field","a"],["Bind",["t","a"]]]]]`,
		"compile", "-", "--engine", "websql", "--namespace", "")
	require.NoError(t, err)

	var stmts []statementJSON
	require.NoError(t, json.Unmarshal([]byte(out), &stmts))
	require.Len(t, stmts, 1)
	assert.Equal(t, "SELECT 1\nFROM \"t\"\nWHERE \"a\" = ?", stmts[0].Query)
	assert.Equal(t, [][]any{{"Bind", []any{"t", "a"}}}, stmts[0].Bindings)
}

func TestCompileUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upsert.json")
	require.NoError(t, os.WriteFile(path, []byte(`["UpsertQuery",
		["InsertQuery",["From",["Table","t"]],["Fields",["id"]],["Values",[["Bind",0]]]],
		["UpdateQuery",["From",["Table","t"]],["Fields",["id"]],["Values",[["Bind",0]]],["Where",["Equals",["Field","id"],["Bind",0]]]]]`), 0o644))

	out, err := run(t, "", "compile", path, "--engine", "postgres", "--namespace", "app")
	require.NoError(t, err)

	var stmts []statementJSON
	require.NoError(t, json.Unmarshal([]byte(out), &stmts))
	require.Len(t, stmts, 2)
	assert.Equal(t, "INSERT INTO \"app\".\"t\" (\"id\")\nVALUES ($1)", stmts[0].Query)
	assert.Equal(t, "UPDATE \"app\".\"t\"\nSET \"id\" = $1\nWHERE \"id\" = $2", stmts[1].Query)
}

func TestCompileRejectsBadTree(t *testing.T) {
	_, err := run(t, `["Sparkles"]`, "compile", "-", "--engine", "postgres", "--namespace", "")
	assert.ErrorIs(t, err, compiler.ErrShape)
}

func TestUnknownEngine(t *testing.T) {
	_, err := run(t, `["Boolean",true]`, "compile", "-", "--engine", "oracle")
	assert.Error(t, err)
}

func TestSlugIsStable(t *testing.T) {
	body := `["NotExists",["SelectQuery",["Select",[]],["From",["Table","pilot"]],["Where",["Not",["Not",["Exists",["Field","id"]]]]]]]`
	first, err := run(t, "", "slug", "pilot", body, "--engine", "postgres")
	require.NoError(t, err)
	second, err := run(t, body, "slug", "pilot", "-", "--engine", "postgres")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "pilot$"))
	assert.LessOrEqual(t, len(strings.TrimSpace(first)), 63)
}

const cliModel = `{
	"tables": {
		"t": {"name": "t", "resourceName": "t", "idField": "id", "indexes": [],
			"fields": [{"fieldName": "id", "dataType": "Serial", "required": true, "index": "PRIMARY KEY"}]}
	},
	"rules": [
		["Rule",
			["Body", ["NotExists", ["SelectQuery", ["Select", []], ["From", ["Alias", ["Table", "t"], "t"]],
				["Where", ["LessThan", ["ReferencedField", "t", "id"], ["Number", 0]]]]]],
			["StructuredEnglish", "It is necessary that each t has a non-negative id."]]
	]
}`

func TestSchemaSeveralEngines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(cliModel), 0o644))

	out, err := run(t, "", "schema", path, "--engines", "postgres,websql", "--engine", "postgres")
	require.NoError(t, err)

	assert.Contains(t, out, "-- engine: postgres\nCREATE TABLE IF NOT EXISTS \"t\" (\n\t\"id\" SERIAL NOT NULL PRIMARY KEY")
	assert.Contains(t, out, "-- engine: websql\nCREATE TABLE IF NOT EXISTS \"t\" (\n\t\"id\" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, out, `CHECK (NOT ("id" < 0))`)
	assert.Contains(t, out, "-- It is necessary that each t has a non-negative id.\n\tCONSTRAINT \"t$")
}

func TestSchemaNamespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(cliModel), 0o644))

	out, err := run(t, "", "schema", path, "--engine", "postgres", "--namespace", "app")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS \"app\".\"t\" (")

	_, err = run(t, "", "schema", path, "--engine", "websql", "--namespace", "app")
	assert.ErrorIs(t, err, compiler.ErrUnsupported)
}

func TestOptimizePrintsModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(cliModel), 0o644))

	out, err := run(t, "", "optimize", path, "--engine", "postgres")
	require.NoError(t, err)

	var model struct {
		Tables map[string]struct {
			Checks []map[string]any `json:"checks"`
		} `json:"tables"`
		Rules []any `json:"rules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &model))
	assert.Empty(t, model.Rules)
	require.Len(t, model.Tables["t"].Checks, 1)
	assert.Equal(t, "It is necessary that each t has a non-negative id.", model.Tables["t"].Checks[0]["description"])
}

func TestEncodeBindings(t *testing.T) {
	got := encodeBindings([]compiler.Binding{
		{Kind: compiler.BindingBind, Value: 0},
		{Kind: compiler.BindingText, Value: "x"},
		{Kind: compiler.BindingBind, Value: compiler.ColumnRef{Table: "t", Field: "f"}},
	})
	assert.Equal(t, [][]any{
		{"Bind", 0},
		{"Text", "x"},
		{"Bind", []string{"t", "f"}},
	}, got)
}
