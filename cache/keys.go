package cache

import (
	"strings"

	"github.com/google/uuid"
)

// statementNamespace scopes the name-based UUIDs derived from SQL text.
var statementNamespace = uuid.MustParse("5b1c1d6e-3f0a-4c55-9a3e-1f4f1a2b7c90")

// StatementName derives the prepared statement name for sql. The name is
// deterministic, so every connection that prepares the same text uses the
// same name.
func StatementName(sql string) string {
	id := uuid.NewSHA1(statementNamespace, []byte(sql))
	return "pgs_" + strings.ReplaceAll(id.String(), "-", "")
}
