// Package db ships the SQL schema with the binary.
package db

import "embed"

// Migrations holds the goose SQL files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
