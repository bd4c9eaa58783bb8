package optimizer

import (
	"crypto/sha256"
	"encoding/base64"
	"unicode/utf8"

	"github.com/atlekbai/abstract_sql/internal/abstractsql"
)

const (
	// MaxIdentifierLength is the identifier budget generated names fit in.
	MaxIdentifierLength = 63
	slugTableLength     = 30
)

// Slug names a constraint derived from body on table. The name depends only
// on its inputs, so re-optimizing an unchanged model yields the same names.
func Slug(table string, body abstractsql.Node) string {
	sum := sha256.Sum256([]byte(table + "$" + abstractsql.Key(body)))
	name := truncate(table, slugTableLength) + "$" + base64.StdEncoding.EncodeToString(sum[:])
	return truncate(name, MaxIdentifierLength)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
