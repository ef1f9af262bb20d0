// Package migrations carries the typegraph schema as goose SQL files. New
// migrations are numbered sequentially: 00002_<name>.sql, 00003_...
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Dir is the root of FS that goose reads migrations from.
const Dir = "."
