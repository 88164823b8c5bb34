package database

import (
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	appfs "github.com/trezcool/gradebook/fs"
)

func sqliteConfig() *core.Config {
	return &core.Config{Database: core.DatabaseConfig{Engine: EngineSQLite, Path: MemoryPath}}
}

func Test_postgresURL(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Host:          "db",
		Port:          "5432",
		User:          "gradebook",
		Password:      "secret",
		AdminUser:     "postgres",
		AdminPassword: "root",
		DisableTLS:    true,
	}}

	assert.Equal(t, "postgres://gradebook:secret@db:5432/gradebook?sslmode=disable&timezone=utc", postgresURL("gradebook", false, conf))
	assert.Equal(t, "postgres://postgres:root@db:5432/postgres?sslmode=disable&timezone=utc", postgresURL("postgres", true, conf))

	conf.Database.DisableTLS = false
	conf.Database.AdminUser = ""
	assert.Equal(t, "postgres://gradebook:secret@db:5432/postgres?sslmode=require&timezone=utc", postgresURL("postgres", true, conf))
}

func Test_sqliteDSN(t *testing.T) {
	assert.Equal(t, MemoryPath, sqliteDSN(""))
	assert.Equal(t, MemoryPath, sqliteDSN(MemoryPath))
	assert.Equal(t, "file:/tmp/gb.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("/tmp/gb.db"))
}

func TestOpen(t *testing.T) {
	_, err := Open(&core.Config{Database: core.DatabaseConfig{Engine: "oracle"}})
	assert.EqualError(t, err, `unsupported database engine "oracle"`)

	db, err := Open(sqliteConfig())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "sqlite3", dialect(db))
	var fk int
	require.NoError(t, db.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}

func TestRunMigrations(t *testing.T) {
	db, err := Open(sqliteConfig())
	require.NoError(t, err)
	defer db.Close()

	origGooseRun := gooseRunFunc
	defer func() { gooseRunFunc = origGooseRun }()

	var gotCommand, gotDir string
	var gotArgs []string
	gooseRunFunc = func(command string, _ *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir, gotArgs = command, dir, args
		if command == "lol" {
			return errors.New(`"lol": no such command`)
		}
		return nil
	}

	require.NoError(t, RunMigrations(db, "up-to", "2"))
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, appfs.MigrationsDir, gotDir)
	assert.Equal(t, []string{"2"}, gotArgs)

	err = RunMigrations(db, "lol")
	assert.EqualError(t, err, `running migrations lol: "lol": no such command`)
}

func TestMigrate(t *testing.T) {
	db, err := Open(sqliteConfig())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db), "migrating twice is a no-op")

	var tables []string
	require.NoError(t, db.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'team%' ORDER BY name"))
	assert.Equal(t, []string{"team", "team_project", "team_project_grade", "team_project_penalty", "team_student"}, tables)
}
