package pg

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockID ключ advisory lock, чтобы реплики не накатывали миграции одновременно
const migrationLockID = 724011

type migration struct {
	Version int64
	Name    string
	Content string
}

// RunMigrations применяет встроенные миграции по порядку версий
func RunMigrations(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	migrations, err := loadMigrations(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	return applyMigrations(ctx, db, migrations, logger)
}

func applyMigrations(ctx context.Context, db *sqlx.DB, migrations []migration, logger *slog.Logger) error {
	conn, err := db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			logger.Warn("failed to release migration lock", "error", err)
		}
	}()

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT NOT NULL PRIMARY KEY,
			dirty BOOLEAN NOT NULL DEFAULT FALSE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var dirty []int64
	if err := conn.SelectContext(ctx, &dirty, "SELECT version FROM schema_migrations WHERE dirty = true"); err != nil {
		return fmt.Errorf("failed to check dirty migrations: %w", err)
	}
	if len(dirty) > 0 {
		return fmt.Errorf("database has dirty migrations %v, manual fix required", dirty)
	}

	var current int64
	if err := conn.GetContext(ctx, &current, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		logger.Info("applying migration", "version", m.Version, "name", m.Name)

		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.Content); err != nil {
			_ = tx.Rollback()
			markDirty(ctx, conn, m.Version, logger)
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, dirty, applied_at) VALUES ($1, false, NOW())", m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		applied++
	}

	logger.Info("database migrations completed", "applied", applied, "total", len(migrations))
	return nil
}

// markDirty помечает версию, на которой упала миграция
func markDirty(ctx context.Context, conn *sqlx.Conn, version int64, logger *slog.Logger) {
	_, err := conn.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, dirty, applied_at)
		VALUES ($1, true, NOW())
		ON CONFLICT (version) DO UPDATE SET dirty = true`, version)
	if err != nil {
		logger.Error("failed to mark migration dirty", "version", version, "error", err)
	}
}

// loadMigrations читает *.sql из fsys/dir и сортирует по версии
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []migration
	seen := make(map[int64]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, name, err := parseMigrationName(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid migration name %s: %w", entry.Name(), err)
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, migration{Version: version, Name: name, Content: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// parseMigrationName формат 0001_name.sql
func parseMigrationName(filename string) (int64, string, error) {
	name := strings.TrimSuffix(filename, ".sql")

	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("invalid format: expected NNNN_name.sql")
	}

	version, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid version number: %w", err)
	}
	if version <= 0 {
		return 0, "", fmt.Errorf("version must be positive")
	}

	return version, parts[1], nil
}
