// Package migrations embeds the portal's SQL schema files so the binary can
// migrate the Postgres credential store without shipping a directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
