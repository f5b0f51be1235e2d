package migrations

import "embed"

// FS contains the embedded migrations, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
