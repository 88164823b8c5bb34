// Package appfs embeds the files shipped with the binaries: database migrations and email templates.
package appfs

import "embed"

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "assets/templates/email"
)

//go:embed migrations/*.sql assets/templates/email/*
var FS embed.FS
