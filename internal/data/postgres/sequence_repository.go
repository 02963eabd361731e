package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bobaapp-backend/internal/domain/shared"
	"github.com/bobaapp-backend/internal/platform/persistence"
)

// SequenceRepository implements shared.SequenceSource on a daily_sequences
// table. The atomic upsert makes it safe under concurrent placement, unlike
// a count-then-write scheme.
type SequenceRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewSequenceRepository creates a new PostgreSQL sequence repository
func NewSequenceRepository(logger *slog.Logger, db *persistence.PostgresDB) shared.SequenceSource {
	return &SequenceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *SequenceRepository) WithTx(tx pgx.Tx) shared.SequenceSource {
	return &SequenceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Next draws the next number for the named sequence on the given day.
// The first call of a day creates the row at 1.
func (r *SequenceRepository) Next(ctx context.Context, name string, day time.Time) (int, error) {
	query := `
		INSERT INTO daily_sequences (name, day, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (name, day)
		DO UPDATE SET value = daily_sequences.value + 1
		RETURNING value
	`

	var value int
	err := r.querier.QueryRow(ctx, query, name, day.UTC().Truncate(24*time.Hour)).Scan(&value)
	if err != nil {
		r.logger.Error("Failed to draw sequence number", "name", name, "error", err)
		return 0, fmt.Errorf("failed to draw sequence number: %w", err)
	}

	return value, nil
}
