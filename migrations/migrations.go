// Package migrations содержит SQL-схему каталога.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
