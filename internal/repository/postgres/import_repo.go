package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"pawmarket-backend/internal/domain"
)

// ImportRepo is the relational side of the import pipeline.
type ImportRepo struct {
	db *pgxpool.Pool
}

func NewImportRepo(db *pgxpool.Pool) *ImportRepo {
	return &ImportRepo{db: db}
}

func (r *ImportRepo) EnsureSupplier(ctx context.Context, s domain.Supplier) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO suppliers (supplier_id, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (supplier_id) DO NOTHING`,
		s.ID, s.Name, s.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure supplier %s: %w", s.ID, err)
	}
	return nil
}

// ApplyWrites runs the whole list inside one transaction using a pipelined
// batch. Either every statement lands or none do.
func (r *ImportRepo) ApplyWrites(ctx context.Context, ops []domain.WriteOp) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, op := range ops {
		batch.Queue(op.SQL, op.Args...)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range ops {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("batch statement %d failed: %w", i+1, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}
