package models

import "time"

// EvaluationType is the primary evaluation mode of a module.
type EvaluationType string

const (
	EvaluationContinuous    EvaluationType = "continuous_assessment"
	EvaluationFinalExam     EvaluationType = "final_exam"
	EvaluationProject       EvaluationType = "project"
	EvaluationParticipation EvaluationType = "participation"
)

// Valid returns true when the evaluation type is supported.
func (e EvaluationType) Valid() bool {
	switch e {
	case EvaluationContinuous, EvaluationFinalExam, EvaluationProject, EvaluationParticipation:
		return true
	default:
		return false
	}
}

// Module represents a course unit.
type Module struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"nom"`
	Code           string         `db:"code" json:"code"`
	Hours          float64        `db:"hours" json:"volumeHoraire"`
	Coefficient    float64        `db:"coefficient" json:"coefficient"`
	Semester       string         `db:"semester" json:"semestre"`
	EvaluationType EvaluationType `db:"evaluation_type" json:"typeEvaluation"`
	Weight         float64        `db:"weight" json:"ponderation"`
	Active         bool           `db:"active" json:"actif"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// EntityID implements the store entity contract.
func (m Module) EntityID() string { return m.ID }

// Clone returns a copy of the module.
func (m Module) Clone() Module { return m }

// ModuleFilter captures categorical filters for modules.
type ModuleFilter struct {
	Search   string
	Semester string
	Active   *bool
}
