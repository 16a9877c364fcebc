// Package migrations embeds the sqlite schema migrations so the binary can
// migrate itself on startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
