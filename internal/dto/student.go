package dto

import "github.com/noah-isme/cohort-ledger-api/internal/models"

// CreateStudentRequest is the payload of POST /etudiants.
type CreateStudentRequest struct {
	FirstName       string                  `json:"prenom" validate:"required"`
	LastName        string                  `json:"nom" validate:"required"`
	Email           string                  `json:"email" validate:"required,email"`
	Phone           string                  `json:"telephone"`
	Status          models.EnrollmentStatus `json:"statutInscription" validate:"omitempty,enrollment_status"`
	CurrentCohortID string                  `json:"cohorteActuelle"`
	FinancingType   models.FinancingType    `json:"typeFinancement" validate:"omitempty,financing_type"`
	FinancingAmount float64                 `json:"montantFinancement" validate:"gte=0"`
	AverageGrade    float64                 `json:"moyenneGenerale" validate:"gte=0,lte=20"`
	PresenceRate    float64                 `json:"tauxPresence" validate:"gte=0,lte=100"`
	ProgressionRate float64                 `json:"tauxProgression" validate:"gte=0,lte=100"`
	Notes           []models.StudentNote    `json:"notes"`
}

// ToModel builds the student record.
func (r CreateStudentRequest) ToModel() models.Student {
	status := r.Status
	if status == "" {
		status = models.EnrollmentPending
	}
	financing := r.FinancingType
	if financing == "" {
		financing = models.FinancingNone
	}
	notes := append([]models.StudentNote{}, r.Notes...)
	return models.Student{
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Phone:           r.Phone,
		Status:          status,
		CurrentCohort:   models.UnresolvedCohort(r.CurrentCohortID),
		CohortHistory:   []string{},
		FinancingType:   financing,
		FinancingAmount: r.FinancingAmount,
		AverageGrade:    r.AverageGrade,
		PresenceRate:    r.PresenceRate,
		ProgressionRate: r.ProgressionRate,
		Notes:           notes,
	}
}

// UpdateStudentRequest is the payload of PATCH /etudiants/:id.
type UpdateStudentRequest struct {
	FirstName       *string                  `json:"prenom,omitempty" validate:"omitempty,min=1"`
	LastName        *string                  `json:"nom,omitempty" validate:"omitempty,min=1"`
	Email           *string                  `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string                  `json:"telephone,omitempty"`
	Status          *models.EnrollmentStatus `json:"statutInscription,omitempty" validate:"omitempty,enrollment_status"`
	FinancingType   *models.FinancingType    `json:"typeFinancement,omitempty" validate:"omitempty,financing_type"`
	FinancingAmount *float64                 `json:"montantFinancement,omitempty" validate:"omitempty,gte=0"`
	AverageGrade    *float64                 `json:"moyenneGenerale,omitempty" validate:"omitempty,gte=0,lte=20"`
	PresenceRate    *float64                 `json:"tauxPresence,omitempty" validate:"omitempty,gte=0,lte=100"`
	ProgressionRate *float64                 `json:"tauxProgression,omitempty" validate:"omitempty,gte=0,lte=100"`
	Notes           *[]models.StudentNote    `json:"notes,omitempty"`
}

// Apply copies the set fields onto s. Cohort pointers move only through enrollment.
func (r UpdateStudentRequest) Apply(s *models.Student) {
	if r.FirstName != nil {
		s.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		s.LastName = *r.LastName
	}
	if r.Email != nil {
		s.Email = *r.Email
	}
	if r.Phone != nil {
		s.Phone = *r.Phone
	}
	if r.Status != nil {
		s.Status = *r.Status
	}
	if r.FinancingType != nil {
		s.FinancingType = *r.FinancingType
	}
	if r.FinancingAmount != nil {
		s.FinancingAmount = *r.FinancingAmount
	}
	if r.AverageGrade != nil {
		s.AverageGrade = *r.AverageGrade
	}
	if r.PresenceRate != nil {
		s.PresenceRate = *r.PresenceRate
	}
	if r.ProgressionRate != nil {
		s.ProgressionRate = *r.ProgressionRate
	}
	if r.Notes != nil {
		s.Notes = append([]models.StudentNote{}, (*r.Notes)...)
	}
}

// StudentListQuery captures query parameters of GET /etudiants.
type StudentListQuery struct {
	Search        string `form:"q"`
	Status        string `form:"statut" validate:"omitempty,enrollment_status"`
	CohortID      string `form:"cohorte"`
	FinancingType string `form:"financement" validate:"omitempty,financing_type"`
}

// ToFilter converts the query into a repository filter.
func (q StudentListQuery) ToFilter() models.StudentFilter {
	return models.StudentFilter{
		Search:        q.Search,
		Status:        models.EnrollmentStatus(q.Status),
		CohortID:      q.CohortID,
		FinancingType: models.FinancingType(q.FinancingType),
	}
}
