package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scribe-api/internal/model"
	"github.com/jwalitptl/scribe-api/internal/repository"
)

var patientCols = []string{"id", "name", "age", "sex", "address", "conditions", "created_at", "updated_at"}

func TestPatientRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO patients").
		WithArgs("Ann Lee", 61, "F", "1 High St", "asthma").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(12), now, now))

	p := &model.Patient{Name: "Ann Lee", Age: 61, Sex: model.SexFemale, Address: "1 High St", Conditions: "asthma"}
	require.NoError(t, repo.Create(context.Background(), p))

	assert.Equal(t, int64(12), p.ID)
	assert.Equal(t, now, p.CreatedAt)
}

func TestPatientRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM patients WHERE id").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(patientCols).AddRow(int64(3), "Bo", 30, "M", "", "", now, now))

	p, err := repo.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Bo", p.Name)
	assert.Equal(t, model.SexMale, p.Sex)
}

func TestPatientRepository_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM patients WHERE id").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPatientRepository_UpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectQuery("UPDATE patients").
		WithArgs("Bo", 31, "M", "", "", int64(4)).
		WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), &model.Patient{ID: 4, Name: "Bo", Age: 31, Sex: model.SexMale})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPatientRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectExec("DELETE FROM patients").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM patients").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 4))
	assert.ErrorIs(t, repo.Delete(context.Background(), 5), repository.ErrNotFound)
}

func TestPatientRepository_ListByName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM patients WHERE name ILIKE`).
		WithArgs("%an%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM patients WHERE name ILIKE \$1 ORDER BY id ASC LIMIT \$2 OFFSET \$3`).
		WithArgs("%an%", 10, 10).
		WillReturnRows(sqlmock.NewRows(patientCols).AddRow(int64(1), "Ann", 61, "F", "", "", now, now))

	filters := &model.PatientFilters{Name: "an", Pagination: model.Pagination{Page: 2, PageSize: 10}}
	patients, total, err := repo.List(context.Background(), filters)
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, patients, 1)
	assert.Equal(t, "Ann", patients[0].Name)
}
