package letter

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/scribe-api/internal/email"
	"github.com/jwalitptl/scribe-api/internal/lettergen"
	"github.com/jwalitptl/scribe-api/internal/model"
	"github.com/jwalitptl/scribe-api/internal/render"
	"github.com/jwalitptl/scribe-api/internal/repository"
	apperrors "github.com/jwalitptl/scribe-api/pkg/errors"
	"github.com/jwalitptl/scribe-api/pkg/logger"
	"github.com/jwalitptl/scribe-api/pkg/metrics"
)

const (
	defaultDetails     = "Blood test results"
	maxArchiveAttempts = 10
)

type LetterService interface {
	GenerateLetter(ctx context.Context, patientID int64, req *model.GenerateLetterRequest) (*model.Letter, error)
	GetLetter(ctx context.Context, id int64) (*model.Letter, error)
	ListLetters(ctx context.Context, filters *model.LetterFilters) ([]*model.Letter, int, error)
	UpdateContent(ctx context.Context, id int64, req *model.UpdateLetterContentRequest) (*model.Letter, error)
	Approve(ctx context.Context, id int64, req *model.ReviewLetterRequest) (*model.Letter, error)
	Reject(ctx context.Context, id int64, req *model.ReviewLetterRequest) (*model.Letter, error)
	RenderPDF(ctx context.Context, id int64) ([]byte, error)
	RenderHTML(ctx context.Context, id int64) ([]byte, error)
}

// BatchLoader returns the stored view of one result batch.
type BatchLoader interface {
	Batch(ctx context.Context, patientID int64, batchID uuid.UUID) (*model.BatchView, error)
}

type Composer interface {
	Compose(ctx context.Context, in *lettergen.Input) (string, model.LetterSource, error)
}

type Config struct {
	Dir            string
	SenderName     string
	SenderAddress  []string
	Signatory      string
	SignatoryTitle string
	PDFCacheTTL    time.Duration
}

var transitions = map[model.LetterStatus][]model.LetterStatus{
	model.LetterStatusDraft:    {model.LetterStatusApproved, model.LetterStatusRejected},
	model.LetterStatusRejected: {model.LetterStatusDraft},
}

func canTransition(from, to model.LetterStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Service struct {
	letters  repository.LetterRepository
	patients repository.PatientRepository
	batches  BatchLoader
	composer Composer
	mailer   email.Mailer
	pdfCache *cache.Cache
	config   Config
	now      func() time.Time
	newName  func() (string, error)
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	letters repository.LetterRepository,
	patients repository.PatientRepository,
	batches BatchLoader,
	composer Composer,
	mailer email.Mailer,
	config Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	ttl := config.PDFCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if mailer == nil {
		mailer = email.NopMailer{}
	}
	return &Service{
		letters:  letters,
		patients: patients,
		batches:  batches,
		composer: composer,
		mailer:   mailer,
		pdfCache: cache.New(ttl, 2*ttl),
		config:   config,
		now:      func() time.Time { return time.Now().UTC() },
		newName:  archiveName,
		logger:   logger,
		metrics:  metrics,
	}
}

// GenerateLetter writes a draft letter explaining one batch of results.
func (s *Service) GenerateLetter(ctx context.Context, patientID int64, req *model.GenerateLetterRequest) (*model.Letter, error) {
	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		return nil, apperrors.BadRequest("batch_id must be a UUID", err)
	}

	view, err := s.batches.Batch(ctx, patientID, batchID)
	if err != nil {
		return nil, err
	}

	content, source, err := s.composer.Compose(ctx, &lettergen.Input{
		Batch:      view,
		DoctorName: strings.TrimSpace(req.DoctorName),
		Date:       s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compose letter: %w", err)
	}

	details := strings.TrimSpace(req.Details)
	if details == "" {
		details = defaultDetails
	}

	letter := &model.Letter{
		LetterUID:  uuid.New(),
		PatientID:  patientID,
		BatchID:    uuid.NullUUID{UUID: batchID, Valid: true},
		DoctorName: strings.TrimSpace(req.DoctorName),
		Details:    details,
		Status:     model.LetterStatusDraft,
		Content:    content,
		Source:     source,
	}
	if err := s.letters.Create(ctx, letter); err != nil {
		return nil, fmt.Errorf("failed to create letter: %w", err)
	}

	s.metrics.LetterGenerations.WithLabelValues(string(source)).Inc()
	s.logger.Info("letter generated",
		"letter_id", letter.ID, "patient_id", patientID, "batch_id", batchID.String(), "source", string(source))
	return letter, nil
}

func (s *Service) GetLetter(ctx context.Context, id int64) (*model.Letter, error) {
	letter, err := s.letters.Get(ctx, id)
	if err != nil {
		return nil, wrapNotFound("letter", err)
	}
	return letter, nil
}

func (s *Service) ListLetters(ctx context.Context, filters *model.LetterFilters) ([]*model.Letter, int, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, apperrors.BadRequest(fmt.Sprintf("unknown letter status %q", filters.Status), nil)
	}
	filters.Pagination.Normalize()

	letters, total, err := s.letters.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list letters: %w", err)
	}
	return letters, total, nil
}

// UpdateContent replaces the letter text. Editing a rejected letter puts it
// back into draft.
func (s *Service) UpdateContent(ctx context.Context, id int64, req *model.UpdateLetterContentRequest) (*model.Letter, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperrors.BadRequest("content must not be empty", nil)
	}

	letter, err := s.GetLetter(ctx, id)
	if err != nil {
		return nil, err
	}
	if letter.Status == model.LetterStatusApproved {
		return nil, apperrors.Conflict("approved letters cannot be edited", nil)
	}

	from := letter.Status
	reopened := from == model.LetterStatusRejected
	if reopened {
		letter.Status = model.LetterStatusDraft
	}
	letter.Content = content

	if err := s.letters.Update(ctx, letter, from, nil); err != nil {
		return nil, updateError(err)
	}
	if reopened {
		s.recordTransition(letter)
	}
	return letter, nil
}

// Approve archives the rendered PDF, marks the letter approved and queues a
// LETTER_APPROVED event. Mail delivery failures are logged only.
func (s *Service) Approve(ctx context.Context, id int64, req *model.ReviewLetterRequest) (*model.Letter, error) {
	letter, err := s.GetLetter(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(letter.Status, model.LetterStatusApproved) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot approve a letter in status %s", letter.Status), nil)
	}

	patient, err := s.patients.Get(ctx, letter.PatientID)
	if err != nil {
		return nil, wrapNotFound("patient", err)
	}

	from := letter.Status
	approvedAt := s.now()
	letter.Status = model.LetterStatusApproved
	letter.ApprovedAt = &approvedAt
	letter.Comments = strings.TrimSpace(req.Comments)

	pdf, err := s.renderPDF(letter, patient)
	if err != nil {
		return nil, err
	}

	path, err := s.archive(pdf)
	if err != nil {
		return nil, err
	}
	letter.FilePath = path

	event, err := model.NewOutboxEvent(model.EventLetterApproved, model.JSONMap{
		"letter_id":  letter.ID,
		"letter_uid": letter.LetterUID.String(),
		"patient_id": letter.PatientID,
		"batch_id":   batchIDString(letter.BatchID),
		"file_path":  path,
	})
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to build approval event: %w", err)
	}

	if err := s.letters.Update(ctx, letter, from, event); err != nil {
		_ = os.Remove(path)
		return nil, updateError(err)
	}

	s.pdfCache.Set(cacheKey(letter), pdf, cache.DefaultExpiration)
	s.recordTransition(letter)
	s.logger.Info("letter approved", "letter_id", letter.ID, "file_path", path)

	err = s.mailer.SendLetter(ctx, &email.Letter{
		Subject:        fmt.Sprintf("%s: %s", letter.Details, patient.Name),
		Body:           fmt.Sprintf("Letter %s for %s was approved on %s.", letter.LetterUID, patient.Name, approvedAt.Format(time.RFC1123)),
		AttachmentName: filepath.Base(path),
		PDF:            pdf,
	})
	if err != nil {
		s.logger.Error(err, "failed to mail approved letter", "letter_id", letter.ID)
	}

	return letter, nil
}

func (s *Service) Reject(ctx context.Context, id int64, req *model.ReviewLetterRequest) (*model.Letter, error) {
	letter, err := s.GetLetter(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(letter.Status, model.LetterStatusRejected) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot reject a letter in status %s", letter.Status), nil)
	}

	from := letter.Status
	letter.Status = model.LetterStatusRejected
	letter.Comments = strings.TrimSpace(req.Comments)

	if err := s.letters.Update(ctx, letter, from, nil); err != nil {
		return nil, updateError(err)
	}

	s.recordTransition(letter)
	s.logger.Info("letter rejected", "letter_id", letter.ID)
	return letter, nil
}

// RenderPDF lays out the current letter. Output is cached until the letter
// changes.
func (s *Service) RenderPDF(ctx context.Context, id int64) ([]byte, error) {
	letter, err := s.GetLetter(ctx, id)
	if err != nil {
		return nil, err
	}

	key := cacheKey(letter)
	if cached, ok := s.pdfCache.Get(key); ok {
		return cached.([]byte), nil
	}

	patient, err := s.patients.Get(ctx, letter.PatientID)
	if err != nil {
		return nil, wrapNotFound("patient", err)
	}

	pdf, err := s.renderPDF(letter, patient)
	if err != nil {
		return nil, err
	}
	s.pdfCache.Set(key, pdf, cache.DefaultExpiration)
	return pdf, nil
}

func (s *Service) RenderHTML(ctx context.Context, id int64) ([]byte, error) {
	letter, err := s.GetLetter(ctx, id)
	if err != nil {
		return nil, err
	}
	patient, err := s.patients.Get(ctx, letter.PatientID)
	if err != nil {
		return nil, wrapNotFound("patient", err)
	}

	var buf bytes.Buffer
	if err := render.RenderHTML(&buf, s.document(letter, patient)); err != nil {
		return nil, fmt.Errorf("failed to render letter html: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) renderPDF(letter *model.Letter, patient *model.Patient) ([]byte, error) {
	var buf bytes.Buffer
	if err := render.RenderPDF(&buf, s.document(letter, patient)); err != nil {
		return nil, fmt.Errorf("failed to render letter pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) document(letter *model.Letter, patient *model.Patient) *render.Document {
	date := letter.CreatedAt
	if letter.ApprovedAt != nil {
		date = *letter.ApprovedAt
	}

	signatory := s.config.Signatory
	if letter.DoctorName != "" {
		signatory = letter.DoctorName
	}

	return &render.Document{
		SenderName:     s.config.SenderName,
		SenderAddress:  s.config.SenderAddress,
		Date:           date,
		Recipient:      lettergen.Addressee(patient.Name, string(patient.Sex)),
		Body:           letter.Content,
		Signatory:      signatory,
		SignatoryTitle: s.config.SignatoryTitle,
	}
}

// archive stores the PDF under a fresh random name in the letters directory.
func (s *Service) archive(pdf []byte) (string, error) {
	if err := os.MkdirAll(s.config.Dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create letters directory: %w", err)
	}

	for attempt := 0; attempt < maxArchiveAttempts; attempt++ {
		name, err := s.newName()
		if err != nil {
			return "", err
		}

		path := filepath.Join(s.config.Dir, name+".pdf")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create letter file: %w", err)
		}

		if _, err := f.Write(pdf); err != nil {
			f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("failed to write letter file: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("failed to write letter file: %w", err)
		}
		return path, nil
	}

	return "", fmt.Errorf("failed to find a free letter file name after %d attempts", maxArchiveAttempts)
}

// archiveName is the first 12 hex chars of the sha256 of 16 random bytes.
func archiveName() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	sum := sha256.Sum256(b[:])
	return hex.EncodeToString(sum[:])[:12], nil
}

func (s *Service) recordTransition(letter *model.Letter) {
	s.metrics.LetterTransitions.WithLabelValues(string(letter.Status)).Inc()
}

func cacheKey(letter *model.Letter) string {
	return fmt.Sprintf("%d:%d", letter.ID, letter.UpdatedAt.UnixNano())
}

func batchIDString(id uuid.NullUUID) string {
	if !id.Valid {
		return ""
	}
	return id.UUID.String()
}

func wrapNotFound(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return fmt.Errorf("failed to load %s: %w", resource, err)
}

func updateError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("letter", err)
	}
	if errors.Is(err, repository.ErrStatusChanged) {
		return apperrors.Conflict("letter was modified by another request", err)
	}
	return fmt.Errorf("failed to update letter: %w", err)
}
