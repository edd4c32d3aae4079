package ingest

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/scribe-api/internal/model"
)

// BatchAssigner mints the id shared by every result of one upload.
type BatchAssigner func() uuid.UUID

// NewBatchID is the default assigner (random v4 UUIDs).
var NewBatchID BatchAssigner = uuid.New

// Stamp turns accepted entries into results for patientID under batchID.
func Stamp(entries []Entry, patientID int64, batchID uuid.UUID, sourceFile string) []*model.Result {
	results := make([]*model.Result, 0, len(entries))
	for _, e := range entries {
		low, high := e.Range.Pointers()
		results = append(results, &model.Result{
			PatientID:     patientID,
			TestName:      e.TestName,
			Value:         e.Value,
			Unit:          e.Unit,
			Flag:          e.Flag,
			ReferenceLow:  low,
			ReferenceHigh: high,
			SourceFile:    sourceFile,
			BatchID:       batchID,
		})
	}
	return results
}
