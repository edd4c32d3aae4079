package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scribe-api/internal/model"
	"github.com/jwalitptl/scribe-api/internal/repository"
)

const resultColumns = `id, patient_id, test_name, value, unit, flag, reference_low, reference_high, source_file, batch_id, created_at`

type resultRepository struct {
	BaseRepository
}

func NewResultRepository(db *sqlx.DB) repository.ResultRepository {
	return &resultRepository{NewBaseRepository(db)}
}

func (r *resultRepository) CreateBatch(ctx context.Context, results []*model.Result, event *model.OutboxEvent) error {
	query := `
		INSERT INTO results (
			patient_id, test_name, value, unit, flag,
			reference_low, reference_high, source_file, batch_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, res := range results {
			err := tx.QueryRowxContext(ctx, query,
				res.PatientID,
				res.TestName,
				res.Value,
				res.Unit,
				res.Flag,
				res.ReferenceLow,
				res.ReferenceHigh,
				res.SourceFile,
				res.BatchID,
			).Scan(&res.ID, &res.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert result %q: %w", res.TestName, err)
			}
		}

		if event != nil {
			return insertOutboxEvent(ctx, tx, event)
		}
		return nil
	})
}

func (r *resultRepository) ListByBatch(ctx context.Context, patientID int64, batchID uuid.UUID) ([]*model.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE patient_id = $1 AND batch_id = $2 ORDER BY id ASC`
	results := []*model.Result{}
	if err := r.db.SelectContext(ctx, &results, query, patientID, batchID); err != nil {
		return nil, fmt.Errorf("failed to list batch results: %w", err)
	}
	return results, nil
}

func (r *resultRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE patient_id = $1 ORDER BY id ASC`
	results := []*model.Result{}
	if err := r.db.SelectContext(ctx, &results, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient results: %w", err)
	}
	return results, nil
}

func (r *resultRepository) ListBatches(ctx context.Context, patientID int64) ([]*model.BatchSummary, error) {
	query := `
		SELECT batch_id, MIN(source_file) AS source_file, COUNT(*) AS result_count, MIN(created_at) AS uploaded_at
		FROM results
		WHERE patient_id = $1
		GROUP BY batch_id
		ORDER BY uploaded_at DESC
	`
	batches := []*model.BatchSummary{}
	if err := r.db.SelectContext(ctx, &batches, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}
