// Package memory holds map-backed repositories. They back the "memory"
// database driver for local runs and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scribe-api/internal/model"
	"github.com/jwalitptl/scribe-api/internal/repository"
)

// Store is a single in-memory database shared by all repositories built
// from it, so cascades and outbox writes behave like the SQL schema.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      int64
	patients map[int64]*model.Patient
	results  []*model.Result
	letters  map[int64]*model.Letter
	outbox   []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		patients: make(map[int64]*model.Patient),
		letters:  make(map[int64]*model.Letter),
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Patients() repository.PatientRepository { return &patientRepository{s} }
func (s *Store) Results() repository.ResultRepository   { return &resultRepository{s} }
func (s *Store) Letters() repository.LetterRepository   { return &letterRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository     { return &outboxRepository{s} }

// Events returns a copy of every outbox event written so far.
func (s *Store) Events() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		out = append(out, *e)
	}
	return out
}

type patientRepository struct{ s *Store }

func (r *patientRepository) Create(_ context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.nextID()
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.patients[p.ID] = &cp
	return nil
}

func (r *patientRepository) Get(_ context.Context, id int64) (*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, fmt.Errorf("failed to get patient: %w", repository.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *patientRepository) Update(_ context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.patients[p.ID]
	if !ok {
		return fmt.Errorf("failed to update patient: %w", repository.ErrNotFound)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.s.now()
	cp := *p
	r.s.patients[p.ID] = &cp
	return nil
}

func (r *patientRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.patients[id]; !ok {
		return fmt.Errorf("failed to delete patient: %w", repository.ErrNotFound)
	}
	delete(r.s.patients, id)

	kept := r.s.results[:0]
	for _, res := range r.s.results {
		if res.PatientID != id {
			kept = append(kept, res)
		}
	}
	r.s.results = kept

	for lid, l := range r.s.letters {
		if l.PatientID == id {
			delete(r.s.letters, lid)
		}
	}
	return nil
}

func (r *patientRepository) List(_ context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(filters.Name)
	matched := []*model.Patient{}
	for _, p := range r.s.patients {
		if needle == "" || strings.Contains(strings.ToLower(p.Name), needle) {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	return page(matched, filters.Pagination), len(matched), nil
}

type resultRepository struct{ s *Store }

func (r *resultRepository) CreateBatch(_ context.Context, results []*model.Result, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, res := range results {
		if _, ok := r.s.patients[res.PatientID]; !ok {
			return fmt.Errorf("failed to insert result %q: unknown patient %d", res.TestName, res.PatientID)
		}
	}
	for _, res := range results {
		res.ID = r.s.nextID()
		res.CreatedAt = r.s.now()
		cp := *res
		r.s.results = append(r.s.results, &cp)
	}
	if event != nil {
		cp := *event
		r.s.outbox = append(r.s.outbox, &cp)
	}
	return nil
}

func (r *resultRepository) ListByBatch(_ context.Context, patientID int64, batchID uuid.UUID) ([]*model.Result, error) {
	return r.filter(func(res *model.Result) bool {
		return res.PatientID == patientID && res.BatchID == batchID
	}), nil
}

func (r *resultRepository) ListByPatient(_ context.Context, patientID int64) ([]*model.Result, error) {
	return r.filter(func(res *model.Result) bool { return res.PatientID == patientID }), nil
}

func (r *resultRepository) filter(keep func(*model.Result) bool) []*model.Result {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Result{}
	for _, res := range r.s.results {
		if keep(res) {
			cp := *res
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *resultRepository) ListBatches(_ context.Context, patientID int64) ([]*model.BatchSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byBatch := map[uuid.UUID]*model.BatchSummary{}
	order := []uuid.UUID{}
	for _, res := range r.s.results {
		if res.PatientID != patientID {
			continue
		}
		sum, ok := byBatch[res.BatchID]
		if !ok {
			sum = &model.BatchSummary{BatchID: res.BatchID, SourceFile: res.SourceFile, UploadedAt: res.CreatedAt}
			byBatch[res.BatchID] = sum
			order = append(order, res.BatchID)
		}
		sum.ResultCount++
	}

	out := make([]*model.BatchSummary, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, byBatch[order[i]])
	}
	return out, nil
}

type letterRepository struct{ s *Store }

func (r *letterRepository) Create(_ context.Context, l *model.Letter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.patients[l.PatientID]; !ok {
		return fmt.Errorf("failed to create letter: unknown patient %d", l.PatientID)
	}
	l.ID = r.s.nextID()
	l.CreatedAt = r.s.now()
	l.UpdatedAt = l.CreatedAt
	cp := *l
	r.s.letters[l.ID] = &cp
	return nil
}

func (r *letterRepository) Get(_ context.Context, id int64) (*model.Letter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.letters[id]
	if !ok {
		return nil, fmt.Errorf("failed to get letter: %w", repository.ErrNotFound)
	}
	cp := *l
	return &cp, nil
}

func (r *letterRepository) Update(_ context.Context, l *model.Letter, from model.LetterStatus, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.letters[l.ID]
	if !ok {
		return fmt.Errorf("failed to update letter: %w", repository.ErrNotFound)
	}
	if existing.Status != from {
		return fmt.Errorf("failed to update letter: %w", repository.ErrStatusChanged)
	}
	updated := *existing
	updated.Status = l.Status
	updated.Content = l.Content
	updated.Comments = l.Comments
	updated.FilePath = l.FilePath
	updated.ApprovedAt = l.ApprovedAt
	updated.UpdatedAt = r.s.now()
	if !updated.UpdatedAt.After(existing.UpdatedAt) {
		updated.UpdatedAt = existing.UpdatedAt.Add(time.Microsecond)
	}
	r.s.letters[l.ID] = &updated
	l.UpdatedAt = updated.UpdatedAt

	if event != nil {
		cp := *event
		r.s.outbox = append(r.s.outbox, &cp)
	}
	return nil
}

func (r *letterRepository) List(_ context.Context, filters *model.LetterFilters) ([]*model.Letter, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matched := []*model.Letter{}
	for _, l := range r.s.letters {
		if filters.Status != "" && l.Status != filters.Status {
			continue
		}
		if filters.PatientID != 0 && l.PatientID != filters.PatientID {
			continue
		}
		cp := *l
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	return page(matched, filters.Pagination), len(matched), nil
}

type outboxRepository struct{ s *Store }

func (r *outboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = model.OutboxStatusPending
	}
	cp := *event
	r.s.outbox = append(r.s.outbox, &cp)
	return nil
}

func (r *outboxRepository) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.OutboxEvent{}
	for _, e := range r.s.outbox {
		if len(out) == limit {
			break
		}
		if e.Status == model.OutboxStatusPending {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *outboxRepository) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID != id {
			continue
		}
		e.Status = status
		e.ErrorMessage = errMsg
		if errMsg != nil {
			e.RetryCount++
		}
		e.UpdatedAt = r.s.now()
		if status == model.OutboxStatusProcessed {
			t := e.UpdatedAt
			e.ProcessedAt = &t
		}
		return nil
	}
	return fmt.Errorf("failed to update event status: %w", repository.ErrNotFound)
}

func (r *outboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	kept := r.s.outbox[:0]
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return n, nil
}

func page[T any](items []T, p model.Pagination) []T {
	p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
