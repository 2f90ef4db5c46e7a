// Package migrations applies the embedded SQL schema scripts in order.
package migrations

import "embed"

// FS holds scripts/NNN_name.sql; NNN is the schema version.
//
//go:embed scripts/*.sql
var FS embed.FS
