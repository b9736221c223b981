// Package migrations embeds the forward-only SQL migrations applied by the
// migrate command.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
