package migrations

import "embed"

// FS contains the embedded encounter store migrations.
//
//go:embed *.sql
var FS embed.FS
