package model

import (
	"time"

	"github.com/google/uuid"
)

type LetterStatus string

const (
	LetterStatusDraft    LetterStatus = "Draft"
	LetterStatusApproved LetterStatus = "Approved"
	LetterStatusRejected LetterStatus = "Rejected"
)

func (s LetterStatus) Valid() bool {
	switch s {
	case LetterStatusDraft, LetterStatusApproved, LetterStatusRejected:
		return true
	}
	return false
}

type LetterSource string

const (
	LetterSourceLLM      LetterSource = "llm"
	LetterSourceTemplate LetterSource = "template"
)

type Letter struct {
	ID         int64         `db:"id" json:"id"`
	LetterUID  uuid.UUID     `db:"letter_uid" json:"letter_uid"`
	PatientID  int64         `db:"patient_id" json:"patient_id"`
	BatchID    uuid.NullUUID `db:"batch_id" json:"batch_id"`
	DoctorName string        `db:"doctor_name" json:"doctor_name"`
	Details    string        `db:"details" json:"details"`
	Status     LetterStatus  `db:"status" json:"status"`
	Content    string        `db:"content" json:"content"`
	Comments   string        `db:"comments" json:"comments"`
	Source     LetterSource  `db:"source" json:"source"`
	FilePath   string        `db:"file_path" json:"file_path,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
	ApprovedAt *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
}

type GenerateLetterRequest struct {
	BatchID    string `json:"batch_id" binding:"required,uuid"`
	DoctorName string `json:"doctor_name" binding:"max=200"`
	Details    string `json:"details" binding:"max=500"`
}

type UpdateLetterContentRequest struct {
	Content string `json:"content" binding:"required"`
}

type ReviewLetterRequest struct {
	Comments string `json:"comments" binding:"max=2000"`
}

type LetterFilters struct {
	Status    LetterStatus `form:"status"`
	PatientID int64        `form:"patient_id"`
	Pagination
}
