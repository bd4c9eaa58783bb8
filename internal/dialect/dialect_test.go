package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

func ptr(f float64) *float64 { return &f }

func TestLookup(t *testing.T) {
	for _, e := range All() {
		got, err := Lookup(string(e.Name()))
		require.NoError(t, err)
		assert.Equal(t, e.Name(), got.Name())
	}
	got, err := Lookup("PostgreS")
	require.NoError(t, err)
	assert.Equal(t, NamePostgres, got.Name())

	_, err = Lookup("oracle")
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"pilot"`, Postgres.QuoteIdent("pilot"))
	assert.Equal(t, `"ns"."pilot"`, WebSQL.QuoteIdent("ns", "pilot"))
	assert.Equal(t, `"a""b"`, MySQL.QuoteIdent(`a"b`))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'it''s'`, Postgres.QuoteLiteral("it's"))
	assert.Equal(t, `'a\b'`, WebSQL.QuoteLiteral(`a\b`))
	assert.Equal(t, `'a\\b'`, MySQL.QuoteLiteral(`a\b`))
}

func TestEngineDivergence(t *testing.T) {
	tests := []struct {
		name     string
		render   func(Engine) string
		postgres string
		mysql    string
		websql   string
	}{
		{
			name:     "StrPos",
			render:   func(e Engine) string { return e.StrPos("a", "b") },
			postgres: "STRPOS(a, b)",
			mysql:    "INSTR(a, b)",
			websql:   "INSTR(a, b)",
		},
		{
			name:     "Concat",
			render:   func(e Engine) string { return e.Concat([]string{"a", "b", "c"}) },
			postgres: "(a || b || c)",
			mysql:    "CONCAT(a, b, c)",
			websql:   "(a || b || c)",
		},
		{
			name:     "CharacterLength",
			render:   func(e Engine) string { return e.CharacterLength("s") },
			postgres: "LENGTH(s)",
			mysql:    "CHAR_LENGTH(s)",
			websql:   "LENGTH(s)",
		},
		{
			name:     "Right",
			render:   func(e Engine) string { return e.Right("s", "3") },
			postgres: "RIGHT(s, 3)",
			mysql:    "RIGHT(s, 3)",
			websql:   "SUBSTRING(s, -(3))",
		},
		{
			name:     "Boolean",
			render:   func(e Engine) string { return e.Boolean(true) },
			postgres: "TRUE",
			mysql:    "TRUE",
			websql:   "1",
		},
		{
			name:     "IsDistinctFrom",
			render:   func(e Engine) string { return e.DistinctFrom("a", "b", true) },
			postgres: "a IS DISTINCT FROM b",
			mysql:    "NOT(a <=> b)",
			websql:   "a IS NOT b",
		},
		{
			name:     "IsNotDistinctFrom",
			render:   func(e Engine) string { return e.DistinctFrom("a", "b", false) },
			postgres: "a IS NOT DISTINCT FROM b",
			mysql:    "a <=> b",
			websql:   "a IS b",
		},
		{
			name:     "DefaultValues",
			render:   func(e Engine) string { return e.DefaultValues() },
			postgres: " DEFAULT VALUES",
			mysql:    " () VALUES ()",
			websql:   " DEFAULT VALUES",
		},
		{
			name:     "CreateView",
			render:   func(e Engine) string { return e.CreateView("SELECT 1", "v") },
			postgres: "CREATE OR REPLACE VIEW \"v\" AS\nSELECT 1;",
			mysql:    "CREATE OR REPLACE VIEW \"v\" AS\nSELECT 1;",
			websql:   "CREATE VIEW IF NOT EXISTS \"v\" AS\nSELECT 1;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.postgres, tt.render(Postgres))
			assert.Equal(t, tt.mysql, tt.render(MySQL))
			assert.Equal(t, tt.websql, tt.render(WebSQL))
		})
	}
}

func TestTotalSeconds(t *testing.T) {
	got, err := Postgres.TotalSeconds("d")
	require.NoError(t, err)
	assert.Equal(t, "EXTRACT(EPOCH FROM d)", got)

	got, err = MySQL.TotalSeconds("d")
	require.NoError(t, err)
	assert.Equal(t, "(TIMESTAMPDIFF(MICROSECOND, FROM_UNIXTIME(0), FROM_UNIXTIME(0) + d) / 1000000)", got)

	_, err = WebSQL.TotalSeconds("d")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, NameWebSQL, unsupported.Engine)
	assert.Equal(t, "TotalSeconds", unsupported.Feature)
}

func TestDuration(t *testing.T) {
	d := &abstractsql.Duration{Negative: true, Day: ptr(1), Hour: ptr(2), Second: ptr(3.25)}

	got, err := Postgres.Duration(d)
	require.NoError(t, err)
	assert.Equal(t, "INTERVAL '-1 -2:0:3.25'", got)

	got, err = MySQL.Duration(&abstractsql.Duration{Minute: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, "INTERVAL '0 0:5:0.0' DAY_MICROSECOND", got)

	_, err = WebSQL.Duration(d)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestAggregateJSONOnlyPostgres(t *testing.T) {
	got, err := Postgres.AggregateJSON(`"t".*`)
	require.NoError(t, err)
	assert.Equal(t, `COALESCE(JSON_AGG("t".*), '[]')`, got)

	for _, e := range []Engine{MySQL, WebSQL} {
		_, err := e.AggregateJSON(`"t".*`)
		assert.ErrorIs(t, err, ErrUnsupported, e.Name())
	}
}

func TestDatePart(t *testing.T) {
	got, err := Postgres.DatePart(abstractsql.PartYear, "d")
	require.NoError(t, err)
	assert.Equal(t, "EXTRACT(YEAR FROM d)", got)

	got, err = WebSQL.DatePart(abstractsql.PartMonth, "d")
	require.NoError(t, err)
	assert.Equal(t, "CAST(STRFTIME('%m', d) AS INTEGER)", got)

	got, err = Postgres.DatePart(abstractsql.PartFractionalseconds, "d")
	require.NoError(t, err)
	assert.Equal(t, "(EXTRACT(SECOND FROM d) - FLOOR(EXTRACT(SECOND FROM d)))", got)

	got, err = WebSQL.DatePart(abstractsql.PartFractionalseconds, "d")
	require.NoError(t, err)
	assert.Equal(t, "(CAST(STRFTIME('%f', d) AS REAL) - CAST(STRFTIME('%S', d) AS INTEGER))", got)

	_, err = MySQL.DatePart("Week", "d")
	assert.ErrorIs(t, err, abstractsql.ErrShape)
}

func TestRenumber(t *testing.T) {
	got, err := Postgres.Renumber("SELECT ? WHERE a = ? AND b = ?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT $1 WHERE a = $2 AND b = $3", got)

	got, err = MySQL.Renumber("SELECT ?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT ?", got)

	got, err = Postgres.Renumber(`SELECT "ok??" WHERE "a" = ?`)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "ok?" WHERE "a" = $1`, got)

	got, err = WebSQL.Renumber(`SELECT "ok??" WHERE "a" = ?`)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "ok?" WHERE "a" = ?`, got)
}
