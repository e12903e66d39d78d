// Package sqlitestore is a SQLite-backed colony store for single-node
// deployments and tests.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"colony-server/internal/colony"
	"colony-server/internal/colony/migrations"
	"colony-server/internal/coordinate"
	"colony-server/internal/shared/database"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type Store struct {
	sqlDB  *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ colony.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path, creating parent directories, and applies
// the embedded migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer connection: SQLite serializes writes anyway.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := database.RunMigrations(ctx, sqlDB, migrations.SQLite(), database.DialectSQLite, logger); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("SQLite colony store ready", "component", "sqlite_store", "path", cleanPath)
	return &Store{
		sqlDB:  sqlDB,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) ListClaims(ctx context.Context) ([]colony.Record, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT owner_id, label, galaxy_index, system_index, position_index, claimed_at FROM colonies`)
	if err != nil {
		return nil, fmt.Errorf("query colonies: %w", err)
	}
	defer rows.Close()

	var records []colony.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan colony: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate colonies: %w", err)
	}
	return records, nil
}

func (s *Store) GetProfile(ctx context.Context, owner colony.Owner) (*colony.Record, error) {
	record, err := scanRecord(s.sqlDB.QueryRowContext(ctx,
		`SELECT owner_id, label, galaxy_index, system_index, position_index, claimed_at
		 FROM colonies WHERE owner_id = ?`,
		string(owner),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &record, nil
}

func scanRecord(row interface{ Scan(dest ...any) error }) (colony.Record, error) {
	var (
		record                              colony.Record
		galaxy, system, position, claimedAt sql.NullInt64
	)
	if err := row.Scan(&record.Owner, &record.Label, &galaxy, &system, &position, &claimedAt); err != nil {
		return colony.Record{}, err
	}
	record.Galaxy = nullableInt(galaxy)
	record.System = nullableInt(system)
	record.Position = nullableInt(position)
	if claimedAt.Valid {
		t := fromMillis(claimedAt.Int64)
		record.ClaimedAt = &t
	}
	return record, nil
}

func (s *Store) GetClaim(ctx context.Context, coord coordinate.Coordinate) (*colony.Claim, error) {
	var (
		claim     = colony.Claim{Coordinate: coord}
		claimedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT owner_id, label, claimed_at FROM colonies
		 WHERE galaxy_index = ? AND system_index = ? AND position_index = ?`,
		coord.Galaxy, coord.System, coord.Position,
	).Scan(&claim.Owner, &claim.Label, &claimedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	claim.ClaimedAt = fromMillis(claimedAt)
	return &claim, nil
}

func (s *Store) InsertClaim(ctx context.Context, coord coordinate.Coordinate, owner colony.Owner, label string) (*colony.Claim, error) {
	logger := s.logger.With(
		"component", "sqlite_store",
		"operation", "insert_claim",
		"coordinate", coord.String(),
		"owner", owner,
	)

	var (
		claim     = colony.Claim{Coordinate: coord}
		claimedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO colonies (owner_id, label, galaxy_index, system_index, position_index, claimed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id) DO UPDATE
		 SET label = excluded.label,
		     galaxy_index = excluded.galaxy_index,
		     system_index = excluded.system_index,
		     position_index = excluded.position_index,
		     claimed_at = excluded.claimed_at
		 WHERE colonies.galaxy_index IS NULL
		 RETURNING owner_id, label, claimed_at`,
		string(owner), label, coord.Galaxy, coord.System, coord.Position, toMillis(s.now()),
	).Scan(&claim.Owner, &claim.Label, &claimedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Debug("Owner already holds a coordinate")
			return nil, colony.ErrOwnerSettled
		}
		if isUniqueViolation(err) {
			logger.Debug("Coordinate already claimed")
			return nil, colony.ErrCoordinateTaken
		}
		return nil, fmt.Errorf("insert claim: %w", err)
	}

	claim.ClaimedAt = fromMillis(claimedAt)
	logger.Info("Claim inserted")
	return &claim, nil
}

func (s *Store) EnsureProfile(ctx context.Context, owner colony.Owner, label string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO colonies (owner_id, label) VALUES (?, ?) ON CONFLICT (owner_id) DO NOTHING`,
		string(owner), label,
	)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
