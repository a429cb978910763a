package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Migration is one numbered schema file: NNN_name.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies pending schema files in version order, tracking what has
// run in a schema_migrations table. Each migration executes in its own
// transaction together with its tracking row.
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a migrator over the given connection.
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// RunMigrations reads the .sql files under dir and applies every version not
// yet recorded. Safe to run on every startup.
func (m *Migrator) RunMigrations(dir string) error {
	if err := m.ensureTrackingTable(); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("read applied migrations: %w", err)
	}

	migrations, err := loadMigrations(dir)
	if err != nil {
		return fmt.Errorf("load migrations from %s: %w", dir, err)
	}

	ran := 0
	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		m.logger.Info("Applying schema migration",
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name))
		if err := m.apply(mig); err != nil {
			return fmt.Errorf("apply migration %03d_%s: %w", mig.Version, mig.Name, err)
		}
		ran++
	}

	m.logger.Info("Schema up to date", zap.Int("applied_now", ran))
	return nil
}

func (m *Migrator) ensureTrackingTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(mig Migration) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(mig.SQL); err != nil {
			return err
		}
		_, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			mig.Version, mig.Name)
		return err
	})
}

// loadMigrations parses every NNN_name.sql in the flat migrations directory,
// sorted by version. Files that are not .sql are ignored; a .sql file whose
// name does not start with a number is an error.
func loadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d", &version); err != nil {
			return nil, fmt.Errorf("migration file %s has no leading version number", entry.Name())
		}
		name := entry.Name()
		if idx := strings.Index(name, "_"); idx >= 0 {
			name = strings.TrimSuffix(name[idx+1:], ".sql")
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
