// Package database opens the GORM connections used by the SQL storage backends.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/config"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memoryDSN is a private in-memory SQLite database.
const memoryDSN = "file::memory:"

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA temp_store = MEMORY;",
	"PRAGMA foreign_keys = ON;",
}

// Manager holds the Postgres connection, or the in-memory SQLite database standing in
// for it when Postgres is unreachable.
type Manager struct {
	DB *gorm.DB

	sqlDB    *sql.DB
	fallback bool
	dumpPath string
	log      zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// Connect opens and pings Postgres. On failure it switches to in-memory SQLite, which
// DumpFallback later writes to dumpPath.
func (m *Manager) Connect(cfg config.DBConfig, dumpPath string) error {
	db, sqlDB, err := pinged(OpenPostgres(cfg))
	if err == nil {
		sqlDB.SetMaxOpenConns(10)
		m.DB, m.sqlDB = db, sqlDB
		m.log.Info().Str("host", cfg.Host).Msg("Connected to database")
		return nil
	}

	m.log.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
	db, err = OpenSqlite("")
	if err != nil {
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	if sqlDB, err = db.DB(); err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	m.DB, m.sqlDB = db, sqlDB
	m.fallback, m.dumpPath = true, dumpPath
	m.log.Info().Str("dump", dumpPath).Msg("Using local SQLite DB in memory")
	return nil
}

func pinged(db *gorm.DB, err error) (*gorm.DB, *sql.DB, error) {
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, nil, errors.Join(err, sqlDB.Close())
	}
	return db, sqlDB, nil
}

// Fallback reports whether the manager is running on in-memory SQLite.
func (m *Manager) Fallback() bool {
	return m.fallback
}

// DumpFallback writes the fallback database to its dump path. No-op on Postgres.
func (m *Manager) DumpFallback() error {
	if !m.fallback || m.dumpPath == "" {
		return nil
	}
	start := time.Now()
	if err := Dump(m.DB, m.dumpPath); err != nil {
		return err
	}
	m.log.Debug().Dur("duration", time.Since(start)).Str("path", m.dumpPath).Msg("Dumped memory DB to disk")
	return nil
}

func (m *Manager) Close() error {
	if m.sqlDB == nil {
		return nil
	}
	return m.sqlDB.Close()
}

// DSN builds the Postgres connection string.
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  DSN(cfg),
		PreferSimpleProtocol: true,
	}), gormConfig(1000))
}

// OpenSqlite opens the SQLite file at path, or a private in-memory database when path
// is empty.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = memoryDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(500))
	if err != nil {
		return nil, err
	}
	if path == "" {
		// each pooled connection to :memory: sees its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

func gormConfig(batch int) *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        batch,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// Dump vacuums db into a SQLite file at path, replacing any file already there.
func Dump(db *gorm.DB, path string) error {
	switch {
	case path == "":
		return fmt.Errorf("sqlite file path not set")
	case strings.Contains(path, "'"):
		return fmt.Errorf("invalid sqlite file path: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating dump dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing existing DB file: %w", err)
	}
	if err := db.Exec("VACUUM INTO '" + path + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}
