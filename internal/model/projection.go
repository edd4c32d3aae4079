package model

import "github.com/google/uuid"

type PatientView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Sex        string `json:"sex"`
	Address    string `json:"address"`
	Conditions string `json:"conditions"`
}

type ResultView struct {
	TestName      string  `json:"test_name"`
	Value         string  `json:"value"`
	Unit          string  `json:"unit"`
	Flag          string  `json:"flag"`
	ReferenceLow  *string `json:"reference_low"`
	ReferenceHigh *string `json:"reference_high"`
	SourceFile    string  `json:"source_file"`
	BatchID       string  `json:"batch_id"`
}

// BatchView is the read-only snapshot returned after an upload and used to
// write letters. It shares no memory with the records it was built from.
type BatchView struct {
	Status       string       `json:"status"`
	BatchID      string       `json:"batch_id"`
	SkippedCount int          `json:"skipped_count"`
	Patient      PatientView  `json:"patient"`
	Results      []ResultView `json:"results"`
}

// NewBatchView projects a patient and the results of one batch, in the order given.
func NewBatchView(p *Patient, results []*Result, batchID uuid.UUID, skipped int) *BatchView {
	view := &BatchView{
		Status:       "success",
		BatchID:      batchID.String(),
		SkippedCount: skipped,
		Patient: PatientView{
			ID:         p.ID,
			Name:       p.Name,
			Age:        p.Age,
			Sex:        string(p.Sex),
			Address:    p.Address,
			Conditions: p.Conditions,
		},
		Results: make([]ResultView, 0, len(results)),
	}

	for _, r := range results {
		view.Results = append(view.Results, ResultView{
			TestName:      r.TestName,
			Value:         r.Value,
			Unit:          r.Unit,
			Flag:          r.Flag,
			ReferenceLow:  copyString(r.ReferenceLow),
			ReferenceHigh: copyString(r.ReferenceHigh),
			SourceFile:    r.SourceFile,
			BatchID:       r.BatchID.String(),
		})
	}

	return view
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
