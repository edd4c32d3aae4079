package model

import (
	"strings"
	"time"
)

type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
	SexOther  Sex = "Other"
)

func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

type Patient struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Age        int       `db:"age" json:"age"`
	Sex        Sex       `db:"sex" json:"sex"`
	Address    string    `db:"address" json:"address"`
	Conditions string    `db:"conditions" json:"conditions"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// PatientRequest carries every patient field. Updates replace the whole record.
type PatientRequest struct {
	Name       string `json:"name" form:"name" binding:"required,max=200"`
	Age        *int   `json:"age" form:"age" binding:"required,min=0,max=150"`
	Sex        string `json:"sex" form:"sex" binding:"omitempty,oneof=M F Other"`
	Address    string `json:"address" form:"address" binding:"max=500"`
	Conditions string `json:"conditions" form:"conditions"`
}

// Apply copies the request onto p, defaulting sex to Other.
func (r *PatientRequest) Apply(p *Patient) {
	p.Name = strings.TrimSpace(r.Name)
	if r.Age != nil {
		p.Age = *r.Age
	}
	p.Sex = Sex(strings.TrimSpace(r.Sex))
	if p.Sex == "" {
		p.Sex = SexOther
	}
	p.Address = strings.TrimSpace(r.Address)
	p.Conditions = strings.TrimSpace(r.Conditions)
}

type PatientFilters struct {
	Name string `form:"name"`
	Pagination
}
