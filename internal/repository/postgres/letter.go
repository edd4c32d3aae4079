package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scribe-api/internal/model"
	"github.com/jwalitptl/scribe-api/internal/repository"
)

const letterColumns = `id, letter_uid, patient_id, batch_id, doctor_name, details, status, content, comments, source, file_path, created_at, updated_at, approved_at`

type letterRepository struct {
	BaseRepository
}

func NewLetterRepository(db *sqlx.DB) repository.LetterRepository {
	return &letterRepository{NewBaseRepository(db)}
}

func (r *letterRepository) Create(ctx context.Context, letter *model.Letter) error {
	query := `
		INSERT INTO letters (
			letter_uid, patient_id, batch_id, doctor_name, details,
			status, content, comments, source, file_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		letter.LetterUID,
		letter.PatientID,
		letter.BatchID,
		letter.DoctorName,
		letter.Details,
		letter.Status,
		letter.Content,
		letter.Comments,
		letter.Source,
		letter.FilePath,
	).Scan(&letter.ID, &letter.CreatedAt, &letter.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create letter: %w", err)
	}
	return nil
}

func (r *letterRepository) Get(ctx context.Context, id int64) (*model.Letter, error) {
	query := `SELECT ` + letterColumns + ` FROM letters WHERE id = $1`
	var letter model.Letter
	if err := r.db.GetContext(ctx, &letter, query, id); err != nil {
		return nil, fmt.Errorf("failed to get letter: %w", notFound(err))
	}
	return &letter, nil
}

func (r *letterRepository) Update(ctx context.Context, letter *model.Letter, from model.LetterStatus, event *model.OutboxEvent) error {
	query := `
		UPDATE letters
		SET status = $1, content = $2, comments = $3, file_path = $4, approved_at = $5, updated_at = NOW()
		WHERE id = $6 AND status = $7
		RETURNING updated_at
	`
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, query,
			letter.Status,
			letter.Content,
			letter.Comments,
			letter.FilePath,
			letter.ApprovedAt,
			letter.ID,
			from,
		).Scan(&letter.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM letters WHERE id = $1)`, letter.ID); err != nil {
				return fmt.Errorf("failed to check letter: %w", err)
			}
			if exists {
				return fmt.Errorf("failed to update letter: %w", repository.ErrStatusChanged)
			}
		}
		if err != nil {
			return fmt.Errorf("failed to update letter: %w", notFound(err))
		}

		if event != nil {
			return insertOutboxEvent(ctx, tx, event)
		}
		return nil
	})
}

func (r *letterRepository) List(ctx context.Context, filters *model.LetterFilters) ([]*model.Letter, int, error) {
	var conds []string
	var args []interface{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.PatientID != 0 {
		args = append(args, filters.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM letters`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count letters: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM letters%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		letterColumns, where, len(args)+1, len(args)+2)
	args = append(args, filters.PageSize, filters.Offset())

	letters := []*model.Letter{}
	if err := r.db.SelectContext(ctx, &letters, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list letters: %w", err)
	}
	return letters, total, nil
}
