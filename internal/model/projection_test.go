package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchViewKeepsOrderAndCopies(t *testing.T) {
	batch := uuid.New()
	low, high := "3.5", "5.1"
	p := &Patient{ID: 4, Name: "Ann", Age: 61, Sex: SexFemale}
	results := []*Result{
		{ID: 10, TestName: "Potassium", Value: "4.2", Unit: "mmol/L", ReferenceLow: &low, ReferenceHigh: &high, BatchID: batch, SourceFile: "a.csv"},
		{ID: 11, TestName: "Sodium", Value: "139", BatchID: batch, SourceFile: "a.csv"},
	}

	view := NewBatchView(p, results, batch, 2)

	require.Len(t, view.Results, 2)
	assert.Equal(t, "success", view.Status)
	assert.Equal(t, batch.String(), view.BatchID)
	assert.Equal(t, 2, view.SkippedCount)
	assert.Equal(t, "Potassium", view.Results[0].TestName)
	assert.Equal(t, "Sodium", view.Results[1].TestName)
	assert.Nil(t, view.Results[1].ReferenceLow)

	low = "changed"
	p.Name = "changed"
	assert.Equal(t, "3.5", *view.Results[0].ReferenceLow)
	assert.Equal(t, "Ann", view.Patient.Name)
}

func TestPatientRequestApplyDefaultsSex(t *testing.T) {
	age := 40
	req := PatientRequest{Name: "  Bob ", Age: &age}

	var p Patient
	req.Apply(&p)

	assert.Equal(t, "Bob", p.Name)
	assert.Equal(t, SexOther, p.Sex)
	assert.True(t, p.Sex.Valid())
	assert.False(t, Sex("X").Valid())
}

func TestPaginationNormalize(t *testing.T) {
	p := Pagination{Page: 0, PageSize: 1000}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = Pagination{Page: 3, PageSize: 10}
	p.Normalize()
	assert.Equal(t, 20, p.Offset())
}
