package result

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scribe-api/internal/ingest"
	"github.com/jwalitptl/scribe-api/internal/model"
	"github.com/jwalitptl/scribe-api/internal/repository"
	apperrors "github.com/jwalitptl/scribe-api/pkg/errors"
	"github.com/jwalitptl/scribe-api/pkg/logger"
	"github.com/jwalitptl/scribe-api/pkg/metrics"
)

type ResultService interface {
	Ingest(ctx context.Context, patientID int64, fileName string, content io.Reader) (*model.BatchView, error)
	Batch(ctx context.Context, patientID int64, batchID uuid.UUID) (*model.BatchView, error)
	ListResults(ctx context.Context, patientID int64, batchID *uuid.UUID) ([]*model.Result, error)
	ListBatches(ctx context.Context, patientID int64) ([]*model.BatchSummary, error)
}

type Config struct {
	MaxUploadBytes int64
	RangePolicy    ingest.RangePolicy
}

type Service struct {
	patients   repository.PatientRepository
	results    repository.ResultRepository
	newBatchID ingest.BatchAssigner
	config     Config
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	patients repository.PatientRepository,
	results repository.ResultRepository,
	config Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		patients:   patients,
		results:    results,
		newBatchID: ingest.NewBatchID,
		config:     config,
		logger:     logger,
		metrics:    metrics,
	}
}

// WithBatchAssigner swaps the batch id source.
func (s *Service) WithBatchAssigner(fn ingest.BatchAssigner) *Service {
	s.newBatchID = fn
	return s
}

// Ingest stores the results found in one uploaded file under a fresh batch
// id and returns the stored batch. The patient is looked up before content
// is read. Rows already persisted stay persisted if the final read fails.
func (s *Service) Ingest(ctx context.Context, patientID int64, fileName string, content io.Reader) (*model.BatchView, error) {
	start := time.Now()
	defer func() {
		s.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		s.recordOutcome("not_found")
		return nil, patientNotFound(err)
	}

	batchID := s.newBatchID()
	sourceFile := sourceName(fileName)

	payload, err := readLimited(content, s.config.MaxUploadBytes)
	if err != nil {
		s.recordOutcome("bad_input")
		return nil, err
	}

	table, err := ingest.Decode(sourceFile, payload)
	if err != nil {
		s.recordOutcome("bad_input")
		return nil, decodeError(err)
	}

	outcome := ingest.Fold(table, s.config.RangePolicy)
	s.metrics.IngestRows.WithLabelValues("accepted").Add(float64(len(outcome.Accepted)))
	s.metrics.IngestRows.WithLabelValues("skipped").Add(float64(outcome.Skipped))

	if len(outcome.Accepted) == 0 {
		s.recordOutcome("empty_batch")
		s.logger.Warn("upload produced no results",
			"patient_id", patientID, "batch_id", batchID.String(), "skipped", outcome.Skipped)
		return nil, apperrors.EmptyBatch()
	}

	results := ingest.Stamp(outcome.Accepted, patientID, batchID, sourceFile)
	event, err := model.NewOutboxEvent(model.EventResultsIngested, model.JSONMap{
		"patient_id":  patientID,
		"batch_id":    batchID.String(),
		"source_file": sourceFile,
		"accepted":    len(results),
		"skipped":     outcome.Skipped,
	})
	if err != nil {
		s.recordOutcome("error")
		return nil, fmt.Errorf("failed to build ingest event: %w", err)
	}

	if err := s.results.CreateBatch(ctx, results, event); err != nil {
		s.recordOutcome("error")
		return nil, fmt.Errorf("failed to store results: %w", err)
	}

	stored, err := s.results.ListByBatch(ctx, patientID, batchID)
	if err != nil {
		s.recordOutcome("error")
		return nil, fmt.Errorf("failed to reload batch: %w", err)
	}
	if len(stored) == 0 {
		s.recordOutcome("empty_batch")
		return nil, apperrors.EmptyBatch()
	}

	s.recordOutcome("success")
	s.logger.Info("results ingested",
		"patient_id", patientID,
		"batch_id", batchID.String(),
		"source_file", sourceFile,
		"accepted", len(stored),
		"skipped", outcome.Skipped)

	return model.NewBatchView(patient, stored, batchID, outcome.Skipped), nil
}

// Batch rebuilds the view of a stored batch.
func (s *Service) Batch(ctx context.Context, patientID int64, batchID uuid.UUID) (*model.BatchView, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, patientNotFound(err)
	}

	stored, err := s.results.ListByBatch(ctx, patientID, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	if len(stored) == 0 {
		return nil, apperrors.NotFound("batch", nil)
	}

	return model.NewBatchView(patient, stored, batchID, 0), nil
}

func (s *Service) ListResults(ctx context.Context, patientID int64, batchID *uuid.UUID) ([]*model.Result, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, patientNotFound(err)
	}

	var (
		results []*model.Result
		err     error
	)
	if batchID != nil {
		results, err = s.results.ListByBatch(ctx, patientID, *batchID)
	} else {
		results, err = s.results.ListByPatient(ctx, patientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}

func (s *Service) ListBatches(ctx context.Context, patientID int64) ([]*model.BatchSummary, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, patientNotFound(err)
	}

	batches, err := s.results.ListBatches(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

func (s *Service) recordOutcome(outcome string) {
	s.metrics.IngestUploads.WithLabelValues(outcome).Inc()
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	if limit <= 0 {
		if _, err := buf.ReadFrom(r); err != nil {
			return nil, apperrors.BadInput("failed to read uploaded file", err)
		}
		return buf.Bytes(), nil
	}
	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, apperrors.BadInput("failed to read uploaded file", err)
	}
	if n > limit {
		return nil, apperrors.TooLarge(limit)
	}
	return buf.Bytes(), nil
}

// sourceName keeps only the final element of a client supplied file name.
func sourceName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func decodeError(err error) error {
	switch {
	case errors.Is(err, ingest.ErrEmptyPayload):
		return apperrors.BadInput("uploaded file is empty", err)
	case errors.Is(err, ingest.ErrUnreadableWorkbook):
		return apperrors.BadInput("uploaded workbook cannot be read", err)
	default:
		return apperrors.BadInput("uploaded file cannot be decoded", err)
	}
}

func patientNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("patient", err)
	}
	return fmt.Errorf("failed to look up patient: %w", err)
}
