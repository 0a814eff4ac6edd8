package dto

import (
	"time"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

// CreateCohortRequest is the payload of POST /cohortes.
type CreateCohortRequest struct {
	Name             string              `json:"nom" validate:"required"`
	SchoolYear       string              `json:"anneeScolaire" validate:"required"`
	ProgramType      models.ProgramType  `json:"typeFormation" validate:"required,program_type"`
	Status           models.CohortStatus `json:"statut" validate:"omitempty,cohort_status"`
	PlannedHeadcount int                 `json:"nombreEtudiantsPrevu" validate:"gte=0"`
	TotalHours       float64             `json:"volumeHoraireTotal" validate:"gte=0"`
	StartDate        time.Time           `json:"dateDebut" validate:"required"`
	EndDate          time.Time           `json:"dateFin" validate:"required"`
	ModuleIDs        []string            `json:"modules" validate:"omitempty,dive,required"`
	Billing          models.Billing      `json:"facturation"`
}

// ToModel builds a cohort with an empty roster.
func (r CreateCohortRequest) ToModel() models.Cohort {
	status := r.Status
	if status == "" {
		status = models.CohortStatusInPreparation
	}
	modules := r.ModuleIDs
	if modules == nil {
		modules = []string{}
	}
	return models.Cohort{
		Name:             r.Name,
		SchoolYear:       r.SchoolYear,
		ProgramType:      r.ProgramType,
		Status:           status,
		PlannedHeadcount: r.PlannedHeadcount,
		TotalHours:       r.TotalHours,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		ModuleIDs:        append([]string(nil), modules...),
		StudentIDs:       []string{},
		Instructors:      []models.InstructorAllocation{},
		Billing:          r.Billing,
	}
}

// UpdateCohortRequest is the payload of PATCH /cohortes/:id. Nil fields are left untouched.
type UpdateCohortRequest struct {
	Name             *string              `json:"nom,omitempty" validate:"omitempty,min=1"`
	SchoolYear       *string              `json:"anneeScolaire,omitempty" validate:"omitempty,min=1"`
	ProgramType      *models.ProgramType  `json:"typeFormation,omitempty" validate:"omitempty,program_type"`
	Status           *models.CohortStatus `json:"statut,omitempty" validate:"omitempty,cohort_status"`
	PlannedHeadcount *int                 `json:"nombreEtudiantsPrevu,omitempty" validate:"omitempty,gte=0"`
	TotalHours       *float64             `json:"volumeHoraireTotal,omitempty" validate:"omitempty,gte=0"`
	StartDate        *time.Time           `json:"dateDebut,omitempty"`
	EndDate          *time.Time           `json:"dateFin,omitempty"`
	ModuleIDs        *[]string            `json:"modules,omitempty"`
	Billing          *models.Billing      `json:"facturation,omitempty"`
}

// Apply copies the set fields onto c.
func (r UpdateCohortRequest) Apply(c *models.Cohort) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.SchoolYear != nil {
		c.SchoolYear = *r.SchoolYear
	}
	if r.ProgramType != nil {
		c.ProgramType = *r.ProgramType
	}
	if r.Status != nil {
		c.Status = *r.Status
	}
	if r.PlannedHeadcount != nil {
		c.PlannedHeadcount = *r.PlannedHeadcount
	}
	if r.TotalHours != nil {
		c.TotalHours = *r.TotalHours
	}
	if r.StartDate != nil {
		c.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		c.EndDate = *r.EndDate
	}
	if r.ModuleIDs != nil {
		c.ModuleIDs = append([]string{}, (*r.ModuleIDs)...)
	}
	if r.Billing != nil {
		c.Billing = *r.Billing
	}
}

// CohortStudentsRequest is the body of POST and DELETE /cohortes/:id/students.
type CohortStudentsRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,required"`
}

// AssignInstructorRequest is the body of POST /cohortes/:id/intervenants.
type AssignInstructorRequest struct {
	InstructorID   string  `json:"intervenantId" validate:"required"`
	AllocatedHours float64 `json:"heuresAllouees" validate:"gte=0"`
}

// RemoveInstructorRequest is the body of DELETE /cohortes/:id/intervenants.
type RemoveInstructorRequest struct {
	InstructorID string `json:"intervenantId" validate:"required"`
}

// CohortMutationResponse wraps a cohort with the warnings raised by the change.
// Roster changes also carry the stored state of the students they named.
type CohortMutationResponse struct {
	Cohort   models.Cohort    `json:"cohorte"`
	Students []models.Student `json:"etudiants,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	NotFound []string         `json:"introuvables,omitempty"`
}
