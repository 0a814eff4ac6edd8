package dto

import "github.com/noah-isme/cohort-ledger-api/internal/models"

// CreateModuleRequest is the payload of POST /modules.
type CreateModuleRequest struct {
	Name           string                `json:"nom" validate:"required"`
	Code           string                `json:"code" validate:"required"`
	Hours          float64               `json:"volumeHoraire" validate:"gte=0"`
	Coefficient    float64               `json:"coefficient" validate:"gte=0"`
	Semester       string                `json:"semestre"`
	EvaluationType models.EvaluationType `json:"typeEvaluation" validate:"omitempty,evaluation_type"`
	Weight         float64               `json:"ponderation" validate:"gte=0,lte=1"`
	Active         *bool                 `json:"actif"`
}

// ToModel builds the module record; modules are active unless stated otherwise.
func (r CreateModuleRequest) ToModel() models.Module {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	evaluation := r.EvaluationType
	if evaluation == "" {
		evaluation = models.EvaluationContinuous
	}
	return models.Module{
		Name:           r.Name,
		Code:           r.Code,
		Hours:          r.Hours,
		Coefficient:    r.Coefficient,
		Semester:       r.Semester,
		EvaluationType: evaluation,
		Weight:         r.Weight,
		Active:         active,
	}
}

// UpdateModuleRequest is the payload of PATCH /modules/:id.
type UpdateModuleRequest struct {
	Name           *string                `json:"nom,omitempty" validate:"omitempty,min=1"`
	Code           *string                `json:"code,omitempty" validate:"omitempty,min=1"`
	Hours          *float64               `json:"volumeHoraire,omitempty" validate:"omitempty,gte=0"`
	Coefficient    *float64               `json:"coefficient,omitempty" validate:"omitempty,gte=0"`
	Semester       *string                `json:"semestre,omitempty"`
	EvaluationType *models.EvaluationType `json:"typeEvaluation,omitempty" validate:"omitempty,evaluation_type"`
	Weight         *float64               `json:"ponderation,omitempty" validate:"omitempty,gte=0,lte=1"`
	Active         *bool                  `json:"actif,omitempty"`
}

// Apply copies the set fields onto m.
func (r UpdateModuleRequest) Apply(m *models.Module) {
	if r.Name != nil {
		m.Name = *r.Name
	}
	if r.Code != nil {
		m.Code = *r.Code
	}
	if r.Hours != nil {
		m.Hours = *r.Hours
	}
	if r.Coefficient != nil {
		m.Coefficient = *r.Coefficient
	}
	if r.Semester != nil {
		m.Semester = *r.Semester
	}
	if r.EvaluationType != nil {
		m.EvaluationType = *r.EvaluationType
	}
	if r.Weight != nil {
		m.Weight = *r.Weight
	}
	if r.Active != nil {
		m.Active = *r.Active
	}
}
