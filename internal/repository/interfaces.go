package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scribe-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrStatusChanged is returned when a conditional update finds the row
	// in a different status than the caller read.
	ErrStatusChanged = errors.New("record status changed")
)

// All repository interfaces in one file
type (
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id int64) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id int64) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error)
	}

	ResultRepository interface {
		// CreateBatch inserts results in slice order and, in the same
		// transaction, the outbox event announcing them.
		CreateBatch(ctx context.Context, results []*model.Result, event *model.OutboxEvent) error
		ListByBatch(ctx context.Context, patientID int64, batchID uuid.UUID) ([]*model.Result, error)
		ListByPatient(ctx context.Context, patientID int64) ([]*model.Result, error)
		ListBatches(ctx context.Context, patientID int64) ([]*model.BatchSummary, error)
	}

	LetterRepository interface {
		Create(ctx context.Context, letter *model.Letter) error
		Get(ctx context.Context, id int64) (*model.Letter, error)
		// Update saves the mutable letter fields only if the stored status is
		// still from. A non-nil event is written to the outbox in the same
		// transaction.
		Update(ctx context.Context, letter *model.Letter, from model.LetterStatus, event *model.OutboxEvent) error
		List(ctx context.Context, filters *model.LetterFilters) ([]*model.Letter, int, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
