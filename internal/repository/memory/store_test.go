package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scribe-api/internal/model"
	"github.com/jwalitptl/scribe-api/internal/repository"
)

func TestDeletePatientCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	p := &model.Patient{Name: "Ann", Sex: model.SexFemale}
	require.NoError(t, s.Patients().Create(ctx, p))
	batch := uuid.New()
	require.NoError(t, s.Results().CreateBatch(ctx, []*model.Result{{PatientID: p.ID, TestName: "Na", Value: "1", BatchID: batch}}, nil))
	require.NoError(t, s.Letters().Create(ctx, &model.Letter{PatientID: p.ID, Status: model.LetterStatusDraft}))

	require.NoError(t, s.Patients().Delete(ctx, p.ID))

	results, err := s.Results().ListByPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
	_, total, err := s.Letters().List(ctx, &model.LetterFilters{PatientID: p.ID})
	require.NoError(t, err)
	assert.Zero(t, total)

	assert.ErrorIs(t, s.Patients().Delete(ctx, p.ID), repository.ErrNotFound)
}

func TestCreateBatchRejectsUnknownPatient(t *testing.T) {
	s := NewStore()
	err := s.Results().CreateBatch(context.Background(), []*model.Result{{PatientID: 42, TestName: "Na", Value: "1"}}, nil)
	assert.Error(t, err)
}

func TestListBatchesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := &model.Patient{Name: "Ann"}
	require.NoError(t, s.Patients().Create(ctx, p))

	first, second := uuid.New(), uuid.New()
	require.NoError(t, s.Results().CreateBatch(ctx, []*model.Result{
		{PatientID: p.ID, TestName: "A", Value: "1", BatchID: first, SourceFile: "one.csv"},
		{PatientID: p.ID, TestName: "B", Value: "2", BatchID: first, SourceFile: "one.csv"},
	}, nil))
	require.NoError(t, s.Results().CreateBatch(ctx, []*model.Result{
		{PatientID: p.ID, TestName: "C", Value: "3", BatchID: second, SourceFile: "two.csv"},
	}, nil))

	batches, err := s.Results().ListBatches(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, second, batches[0].BatchID)
	assert.Equal(t, 2, batches[1].ResultCount)
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Outbox()

	evt, err := model.NewOutboxEvent("X", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, evt))

	msg := "down"
	require.NoError(t, repo.UpdateStatus(ctx, evt.ID, model.OutboxStatusPending, &msg))
	pending, err := repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)

	require.NoError(t, repo.UpdateStatus(ctx, evt.ID, model.OutboxStatusProcessed, nil))
	n, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, s.Events())
}

func TestLetterUpdateChecksStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	p := &model.Patient{Name: "Ann", Sex: model.SexFemale}
	require.NoError(t, s.Patients().Create(ctx, p))
	l := &model.Letter{PatientID: p.ID, Status: model.LetterStatusDraft}
	require.NoError(t, s.Letters().Create(ctx, l))

	l.Status = model.LetterStatusRejected
	require.NoError(t, s.Letters().Update(ctx, l, model.LetterStatusDraft, nil))

	l.Status = model.LetterStatusApproved
	evt, err := model.NewOutboxEvent(model.EventLetterApproved, model.JSONMap{"letter_id": l.ID})
	require.NoError(t, err)
	err = s.Letters().Update(ctx, l, model.LetterStatusDraft, evt)
	assert.ErrorIs(t, err, repository.ErrStatusChanged)

	stored, err := s.Letters().Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LetterStatusRejected, stored.Status)
	assert.Empty(t, s.Events())

	assert.ErrorIs(t, s.Letters().Update(ctx, &model.Letter{ID: 999}, model.LetterStatusDraft, nil), repository.ErrNotFound)
}
