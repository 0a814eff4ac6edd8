package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EnrollmentStatus is the administrative status of a learner.
type EnrollmentStatus string

const (
	EnrollmentPending     EnrollmentStatus = "pending"
	EnrollmentEnrolled    EnrollmentStatus = "enrolled"
	EnrollmentAdmitted    EnrollmentStatus = "admitted"
	EnrollmentNotAdmitted EnrollmentStatus = "not_admitted"
	EnrollmentGraduated   EnrollmentStatus = "graduated"
	EnrollmentDroppedOut  EnrollmentStatus = "dropped_out"
	EnrollmentExpelled    EnrollmentStatus = "expelled"
)

// Valid returns true when the status belongs to the closed vocabulary.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentPending, EnrollmentEnrolled, EnrollmentAdmitted, EnrollmentNotAdmitted,
		EnrollmentGraduated, EnrollmentDroppedOut, EnrollmentExpelled:
		return true
	default:
		return false
	}
}

// FinancingType describes who pays for the training.
type FinancingType string

const (
	FinancingOPCO     FinancingType = "opco"
	FinancingCPF      FinancingType = "cpf"
	FinancingCompany  FinancingType = "company"
	FinancingPersonal FinancingType = "personal"
	FinancingNone     FinancingType = "none"
)

// Valid returns true when the financing type is supported.
func (f FinancingType) Valid() bool {
	switch f {
	case FinancingOPCO, FinancingCPF, FinancingCompany, FinancingPersonal, FinancingNone:
		return true
	default:
		return false
	}
}

// SelfFunded reports whether the learner pays the training personally.
func (f FinancingType) SelfFunded() bool {
	return f == FinancingPersonal || f == FinancingNone
}

// CohortRef is the current-cohort pointer of a student. The backend may send
// either a bare id or an embedded cohort document; both decode into the same
// value, which is either unresolved (id only) or resolved (full record).
type CohortRef struct {
	id     string
	cohort *Cohort
}

// UnresolvedCohort builds a reference carrying only an id.
func UnresolvedCohort(id string) CohortRef {
	return CohortRef{id: id}
}

// ResolvedCohort builds a reference carrying the full record.
func ResolvedCohort(c Cohort) CohortRef {
	clone := c.Clone()
	return CohortRef{id: c.ID, cohort: &clone}
}

// ID returns the referenced cohort id, empty when unset.
func (r CohortRef) ID() string { return r.id }

// IsSet reports whether the reference points at a cohort.
func (r CohortRef) IsSet() bool { return r.id != "" }

// Cohort returns the embedded record when the reference is resolved.
func (r CohortRef) Cohort() (Cohort, bool) {
	if r.cohort == nil {
		return Cohort{}, false
	}
	return r.cohort.Clone(), true
}

// Unresolve drops any embedded record and keeps the id.
func (r CohortRef) Unresolve() CohortRef {
	return CohortRef{id: r.id}
}

// MarshalJSON writes the reference as the bare id (or null).
func (r CohortRef) MarshalJSON() ([]byte, error) {
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

// UnmarshalJSON accepts null, a string id or an embedded cohort object.
func (r *CohortRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*r = CohortRef{}
		return nil
	case trimmed[0] == '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*r = CohortRef{id: id}
		return nil
	case trimmed[0] == '{':
		var embedded Cohort
		if err := json.Unmarshal(trimmed, &embedded); err != nil {
			return fmt.Errorf("decode embedded cohort: %w", err)
		}
		if embedded.ID == "" {
			*r = CohortRef{}
			return nil
		}
		*r = CohortRef{id: embedded.ID, cohort: &embedded}
		return nil
	default:
		return fmt.Errorf("cohorteActuelle: unsupported JSON value %s", string(trimmed))
	}
}

// StudentNote is a free-form note attached to a student.
type StudentNote struct {
	Content   string    `json:"contenu"`
	Author    string    `json:"auteur"`
	CreatedAt time.Time `json:"createdAt"`
}

// Student represents a learner, optionally attached to a cohort.
type Student struct {
	ID              string           `json:"id"`
	FirstName       string           `json:"prenom"`
	LastName        string           `json:"nom"`
	Email           string           `json:"email"`
	Phone           string           `json:"telephone"`
	Status          EnrollmentStatus `json:"statutInscription"`
	CurrentCohort   CohortRef        `json:"cohorteActuelle"`
	CohortHistory   []string         `json:"cohortesHistorique"`
	FinancingType   FinancingType    `json:"typeFinancement"`
	FinancingAmount float64          `json:"montantFinancement"`
	AverageGrade    float64          `json:"moyenneGenerale"`
	PresenceRate    float64          `json:"tauxPresence"`
	ProgressionRate float64          `json:"tauxProgression"`
	Notes           []StudentNote    `json:"notes"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// EntityID implements the store entity contract.
func (s Student) EntityID() string { return s.ID }

// Clone returns a deep copy of the student.
func (s Student) Clone() Student {
	out := s
	if s.CurrentCohort.cohort != nil {
		c := s.CurrentCohort.cohort.Clone()
		out.CurrentCohort = CohortRef{id: s.CurrentCohort.id, cohort: &c}
	}
	out.CohortHistory = cloneStrings(s.CohortHistory)
	if s.Notes != nil {
		out.Notes = make([]StudentNote, len(s.Notes))
		copy(out.Notes, s.Notes)
	}
	return out
}

// FullName joins first and last name.
func (s Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	default:
		return s.FirstName + " " + s.LastName
	}
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search        string
	Status        EnrollmentStatus
	CohortID      string
	FinancingType FinancingType
}

// StudentStats summarises the student population.
type StudentStats struct {
	Total              int                      `json:"total"`
	ByStatus           map[EnrollmentStatus]int `json:"parStatut"`
	ByFinancing        map[FinancingType]int    `json:"parFinancement"`
	WithoutCohort      int                      `json:"sansCohorte"`
	AverageGrade       float64                  `json:"moyenneGenerale"`
	AveragePresence    float64                  `json:"tauxPresenceMoyen"`
	AverageProgression float64                  `json:"tauxProgressionMoyen"`
	GeneratedAt        time.Time                `json:"generatedAt"`
}
