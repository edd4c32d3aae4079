package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is one lab measurement ingested from an uploaded file.
type Result struct {
	ID            int64     `db:"id" json:"id"`
	PatientID     int64     `db:"patient_id" json:"patient_id"`
	TestName      string    `db:"test_name" json:"test_name"`
	Value         string    `db:"value" json:"value"`
	Unit          string    `db:"unit" json:"unit"`
	Flag          string    `db:"flag" json:"flag"`
	ReferenceLow  *string   `db:"reference_low" json:"reference_low"`
	ReferenceHigh *string   `db:"reference_high" json:"reference_high"`
	SourceFile    string    `db:"source_file" json:"source_file"`
	BatchID       uuid.UUID `db:"batch_id" json:"batch_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// BatchSummary describes one upload of a patient's results.
type BatchSummary struct {
	BatchID     uuid.UUID `db:"batch_id" json:"batch_id"`
	SourceFile  string    `db:"source_file" json:"source_file"`
	ResultCount int       `db:"result_count" json:"result_count"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}
