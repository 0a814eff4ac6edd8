package models

import "time"

// ProgramType is the training program a cohort follows.
type ProgramType string

const (
	ProgramBTS      ProgramType = "bts"
	ProgramBachelor ProgramType = "bachelor"
	ProgramMasters  ProgramType = "masters"
	ProgramOther    ProgramType = "other"
)

// Valid returns true when the program type is supported.
func (p ProgramType) Valid() bool {
	switch p {
	case ProgramBTS, ProgramBachelor, ProgramMasters, ProgramOther:
		return true
	default:
		return false
	}
}

// CohortStatus represents the lifecycle of a cohort.
type CohortStatus string

const (
	CohortStatusInPreparation CohortStatus = "in_preparation"
	CohortStatusActive        CohortStatus = "active"
	CohortStatusClosed        CohortStatus = "closed"
)

// Valid returns true when the status is a supported value.
func (s CohortStatus) Valid() bool {
	switch s {
	case CohortStatusInPreparation, CohortStatusActive, CohortStatusClosed:
		return true
	default:
		return false
	}
}

// cohortStatusOrder ranks statuses for the ordered transition table.
var cohortStatusOrder = map[CohortStatus]int{
	CohortStatusInPreparation: 0,
	CohortStatusActive:        1,
	CohortStatusClosed:        2,
}

// CanTransitionTo reports whether next directly follows s in the ordered
// in_preparation -> active -> closed lifecycle. Staying on the same status is allowed.
func (s CohortStatus) CanTransitionTo(next CohortStatus) bool {
	from, okFrom := cohortStatusOrder[s]
	to, okTo := cohortStatusOrder[next]
	if !okFrom || !okTo {
		return false
	}
	return to == from || to == from+1
}

// InstructorAllocation assigns teaching hours to an instructor within a cohort.
type InstructorAllocation struct {
	InstructorID   string  `json:"intervenantId"`
	AllocatedHours float64 `json:"heuresAllouees"`
}

// Billing aggregates invoicing totals for a cohort.
type Billing struct {
	AmountInvoiced     float64 `json:"montantFacture"`
	FinancedStudents   int     `json:"nombreFinances"`
	SelfFundedStudents int     `json:"nombreAutofinances"`
}

// Cohort is a group of students following one program during one school year.
type Cohort struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"nom"`
	SchoolYear        string                 `json:"anneeScolaire"`
	ProgramType       ProgramType            `json:"typeFormation"`
	Status            CohortStatus           `json:"statut"`
	PlannedHeadcount  int                    `json:"nombreEtudiantsPrevu"`
	EnrolledHeadcount int                    `json:"nombreEtudiantsInscrits"`
	TotalHours        float64                `json:"volumeHoraireTotal"`
	StartDate         time.Time              `json:"dateDebut"`
	EndDate           time.Time              `json:"dateFin"`
	ModuleIDs         []string               `json:"modules"`
	StudentIDs        []string               `json:"etudiants"`
	Instructors       []InstructorAllocation `json:"intervenants"`
	Billing           Billing                `json:"facturation"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// EntityID implements the store entity contract.
func (c Cohort) EntityID() string { return c.ID }

// Clone returns a deep copy of the cohort.
func (c Cohort) Clone() Cohort {
	out := c
	out.ModuleIDs = cloneStrings(c.ModuleIDs)
	out.StudentIDs = cloneStrings(c.StudentIDs)
	if c.Instructors != nil {
		out.Instructors = make([]InstructorAllocation, len(c.Instructors))
		copy(out.Instructors, c.Instructors)
	}
	return out
}

// HasStudent reports whether the student is on the roster.
func (c Cohort) HasStudent(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// OverCapacity reports whether the roster exceeds the planned headcount.
func (c Cohort) OverCapacity() bool {
	return c.PlannedHeadcount > 0 && c.EnrolledHeadcount > c.PlannedHeadcount
}

// CohortFilter captures categorical filters for cohorts.
type CohortFilter struct {
	Search      string
	Status      CohortStatus
	ProgramType ProgramType
	SchoolYear  string
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
