package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var sampleMigrations = fstest.MapFS{
	"20260101000000_create_stores.sql": {Data: []byte(`-- +goose Up
CREATE TABLE stores (id TEXT PRIMARY KEY);

-- +goose Down
DROP TABLE stores;
`)},
	"20260102000000_create_coupons.sql": {Data: []byte(`-- +goose Up
CREATE TABLE coupons (code TEXT PRIMARY KEY);

-- +goose Down
DROP TABLE coupons;
`)},
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func newSampleMigrator(t *testing.T, db *sql.DB) *Migrator {
	t.Helper()
	m, err := newMigrator(db, goose.DialectSQLite3, sampleMigrations, nil)
	require.NoError(t, err)
	return m
}

func hasTable(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count))
	return count == 1
}

func TestMigratorUpAppliesEverything(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	m := newSampleMigrator(t, db)

	require.NoError(t, m.Up(ctx))

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20260102000000), version)
	assert.True(t, hasTable(t, db, "stores"))
	assert.True(t, hasTable(t, db, "coupons"))

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.Equal(t, goose.StateApplied, st.State)
	}
}

func TestMigratorToMovesBothWays(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	m := newSampleMigrator(t, db)

	require.NoError(t, m.To(ctx, 20260101000000))
	assert.True(t, hasTable(t, db, "stores"))
	assert.False(t, hasTable(t, db, "coupons"))

	require.NoError(t, m.To(ctx, 20260102000000))
	assert.True(t, hasTable(t, db, "coupons"))

	require.NoError(t, m.To(ctx, 20260101000000))
	assert.False(t, hasTable(t, db, "coupons"))
	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20260101000000), version)

	require.NoError(t, m.To(ctx, 20260101000000), "already at target")
}

func TestMigratorDownRevertsNewest(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	m := newSampleMigrator(t, db)
	require.NoError(t, m.Up(ctx))

	require.NoError(t, m.Down(ctx))

	assert.True(t, hasTable(t, db, "stores"))
	assert.False(t, hasTable(t, db, "coupons"))
}

func TestNewRequiresDatabaseAndDir(t *testing.T) {
	_, err := New(nil, "migrations", nil)
	assert.Error(t, err)

	_, err = New(openSQLite(t), "", nil)
	assert.Error(t, err)
}

func TestNewLoadsShippedMigrations(t *testing.T) {
	m, err := New(openSQLite(t), "migrations", nil)
	require.NoError(t, err)

	statuses, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, statuses)
	for _, st := range statuses {
		assert.Equal(t, goose.StatePending, st.State)
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20260301090200")
	require.NoError(t, err)
	assert.Equal(t, int64(20260301090200), v)

	for _, raw := range []string{"", "2026", "20261301090200", "2026030109020x"} {
		_, err := ParseVersion(raw)
		assert.Error(t, err, raw)
	}
}
