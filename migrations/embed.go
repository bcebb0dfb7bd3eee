// Package migrations embeds the SQL schema so the binary can migrate without
// a checkout of this directory.
package migrations

import "embed"

// FS holds the *.sql files in name order.
//
//go:embed *.sql
var FS embed.FS
