package migrations

import (
	_ "embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_quizzes.sql
var createQuizzesSQL string

//go:embed 0002_create_app_settings.sql
var createAppSettingsSQL string

var Migrations = migrate.NewMigrations()
