package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GhostbusterQuest/huntcore/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   uint
	Name string
}

func TestOpenSqlite_InMemory(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "wisp"}).Error)

	var got []row
	require.NoError(t, db.Find(&got).Error)
	assert.Len(t, got, 1)
}

func TestDump(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "banshee"}).Error)

	path := filepath.Join(t.TempDir(), "dumps", "hunt.db")
	require.NoError(t, Dump(db, path))
	// a second dump replaces the first
	require.NoError(t, Dump(db, path))

	disk, err := OpenSqlite(path)
	require.NoError(t, err)
	var got row
	require.NoError(t, disk.First(&got).Error)
	assert.Equal(t, "banshee", got.Name)

	sqlDB, err := disk.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestDump_BadPath(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)

	assert.Error(t, Dump(db, ""))
	assert.Error(t, Dump(db, "/tmp/it's.db"))
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{Host: "db", Port: "5433", Username: "u", Password: "p", Database: "hunt"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=hunt sslmode=disable", dsn)
}

func TestManager_FallsBackToSqlite(t *testing.T) {
	m := NewManager(zerolog.Nop())
	dump := filepath.Join(t.TempDir(), "fallback.db")

	err := m.Connect(config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "x"}, dump)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.Fallback())
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())

	require.NoError(t, m.DB.AutoMigrate(&row{}))
	require.NoError(t, m.DumpFallback())
	_, err = os.Stat(dump)
	assert.NoError(t, err)
}

func TestManager_DumpFallbackNeedsPath(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.NoError(t, m.DumpFallback())

	err := m.Connect(config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "x"}, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	assert.True(t, m.Fallback())
	assert.NoError(t, m.DumpFallback())
}
