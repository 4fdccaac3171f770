package migrations

import "embed"

// FS contains embedded SQLite migrations for checkout storage.
//
//go:embed *.sql
var FS embed.FS
