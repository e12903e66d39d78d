package colony

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"colony-server/internal/coordinate"
	"colony-server/internal/shared/database"

	"github.com/lib/pq"
)

const (
	uniqueViolation            = "23505"
	coordinateUniqueConstraint = "colonies_coordinate_unique"
)

// Repository is the Postgres-backed Store.
type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

var _ Store = (*Repository)(nil)

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing colony repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) ListClaims(ctx context.Context) ([]Record, error) {
	logger := r.logger.With("component", "colony_repository", "operation", "list_claims")
	logger.Debug("Listing colonies")

	query := `
		SELECT owner_id, label, galaxy_index, system_index, position_index, claimed_at
		FROM colonies
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query colonies", "error", err)
		return nil, fmt.Errorf("failed to query colonies: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			logger.Error("Failed to scan colony row", "error", err)
			return nil, fmt.Errorf("failed to scan colony: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating colonies: %w", err)
	}

	logger.Debug("Colonies retrieved", "count", len(records))
	return records, nil
}

// GetProfile returns the owner's row, or nil when the owner is unknown.
func (r *Repository) GetProfile(ctx context.Context, owner Owner) (*Record, error) {
	logger := r.logger.With("component", "colony_repository", "operation", "get_profile", "owner", owner)

	query := `
		SELECT owner_id, label, galaxy_index, system_index, position_index, claimed_at
		FROM colonies
		WHERE owner_id = $1
	`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, string(owner)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Debug("Owner has no profile")
			return nil, nil
		}
		logger.Error("Failed to read profile", "error", err)
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return &record, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		record                   Record
		galaxy, system, position sql.NullInt64
		claimedAt                sql.NullTime
	)
	if err := row.Scan(&record.Owner, &record.Label, &galaxy, &system, &position, &claimedAt); err != nil {
		return Record{}, err
	}
	record.Galaxy = nullableInt(galaxy)
	record.System = nullableInt(system)
	record.Position = nullableInt(position)
	if claimedAt.Valid {
		t := claimedAt.Time.UTC()
		record.ClaimedAt = &t
	}
	return record, nil
}

func (r *Repository) GetClaim(ctx context.Context, coord coordinate.Coordinate) (*Claim, error) {
	logger := r.logger.With("component", "colony_repository", "operation", "get_claim", "coordinate", coord.String())

	query := `
		SELECT owner_id, label, claimed_at
		FROM colonies
		WHERE galaxy_index = $1 AND system_index = $2 AND position_index = $3
	`

	claim := Claim{Coordinate: coord}
	err := r.db.QueryRowContext(ctx, query, coord.Galaxy, coord.System, coord.Position).Scan(
		&claim.Owner,
		&claim.Label,
		&claim.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Debug("Coordinate is free")
			return nil, nil
		}
		logger.Error("Failed to read claim", "error", err)
		return nil, fmt.Errorf("failed to read claim: %w", err)
	}

	claim.ClaimedAt = claim.ClaimedAt.UTC()
	return &claim, nil
}

// InsertClaim records coord for owner in one statement. The upsert only
// fills a profile row whose coordinate is still NULL, and the unique
// constraint on the coordinate refuses a second holder.
func (r *Repository) InsertClaim(ctx context.Context, coord coordinate.Coordinate, owner Owner, label string) (*Claim, error) {
	logger := r.logger.With(
		"component", "colony_repository",
		"operation", "insert_claim",
		"coordinate", coord.String(),
		"owner", owner,
	)
	logger.Debug("Inserting claim")

	query := `
		INSERT INTO colonies (owner_id, label, galaxy_index, system_index, position_index, claimed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (owner_id) DO UPDATE
		SET label = EXCLUDED.label,
			galaxy_index = EXCLUDED.galaxy_index,
			system_index = EXCLUDED.system_index,
			position_index = EXCLUDED.position_index,
			claimed_at = EXCLUDED.claimed_at
		WHERE colonies.galaxy_index IS NULL
		RETURNING owner_id, label, claimed_at
	`

	claim := Claim{Coordinate: coord}
	err := r.db.QueryRowContext(ctx, query, string(owner), label, coord.Galaxy, coord.System, coord.Position).Scan(
		&claim.Owner,
		&claim.Label,
		&claim.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Debug("Owner already holds a coordinate")
			return nil, ErrOwnerSettled
		}
		if isCoordinateViolation(err) {
			logger.Debug("Coordinate already claimed")
			return nil, ErrCoordinateTaken
		}
		logger.Error("Failed to insert claim", "error", err)
		return nil, fmt.Errorf("failed to insert claim: %w", err)
	}

	claim.ClaimedAt = claim.ClaimedAt.UTC()
	logger.Info("Claim inserted")
	return &claim, nil
}

func (r *Repository) EnsureProfile(ctx context.Context, owner Owner, label string) error {
	logger := r.logger.With("component", "colony_repository", "operation", "ensure_profile", "owner", owner)

	query := `
		INSERT INTO colonies (owner_id, label)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, string(owner), label); err != nil {
		logger.Error("Failed to ensure profile", "error", err)
		return fmt.Errorf("failed to ensure profile: %w", err)
	}

	logger.Debug("Profile ensured")
	return nil
}

func isCoordinateViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == coordinateUniqueConstraint
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
