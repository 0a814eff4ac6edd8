package dto

import (
	"time"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

// CreateInstructorRequest is the payload of POST /intervenants.
type CreateInstructorRequest struct {
	FirstName        string                     `json:"prenom"`
	LastName         string                     `json:"nom" validate:"required"`
	Email            string                     `json:"email" validate:"required,email"`
	Phone            string                     `json:"telephone"`
	ContractType     models.ContractType        `json:"typeContrat" validate:"omitempty,contract_type"`
	MissionStart     *time.Time                 `json:"dateDebutMission"`
	MissionEnd       *time.Time                 `json:"dateFinMission"`
	ModuleIDs        []string                   `json:"modulesEnseignes" validate:"omitempty,dive,required"`
	ExpertiseDomains []string                   `json:"domainesExpertise"`
	Documents        models.InstructorDocuments `json:"documents"`
}

// ToModel builds the instructor record.
func (r CreateInstructorRequest) ToModel() models.Instructor {
	out := models.Instructor{
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Phone:            r.Phone,
		ContractType:     r.ContractType,
		MissionStart:     r.MissionStart,
		MissionEnd:       r.MissionEnd,
		ModuleIDs:        append([]string{}, r.ModuleIDs...),
		ExpertiseDomains: append([]string{}, r.ExpertiseDomains...),
		Documents:        r.Documents,
	}
	if out.ContractType == "" {
		out.ContractType = models.ContractFreelance
	}
	return out.Clone()
}

// UpdateInstructorRequest is the payload of PATCH /intervenants/:id.
type UpdateInstructorRequest struct {
	FirstName        *string                     `json:"prenom,omitempty"`
	LastName         *string                     `json:"nom,omitempty" validate:"omitempty,min=1"`
	Email            *string                     `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string                     `json:"telephone,omitempty"`
	ContractType     *models.ContractType        `json:"typeContrat,omitempty" validate:"omitempty,contract_type"`
	MissionStart     *time.Time                  `json:"dateDebutMission,omitempty"`
	MissionEnd       *time.Time                  `json:"dateFinMission,omitempty"`
	ModuleIDs        *[]string                   `json:"modulesEnseignes,omitempty"`
	ExpertiseDomains *[]string                   `json:"domainesExpertise,omitempty"`
	Documents        *models.InstructorDocuments `json:"documents,omitempty"`
	Archived         *bool                       `json:"archive,omitempty"`
}

// Apply copies the set fields onto i.
func (r UpdateInstructorRequest) Apply(i *models.Instructor) {
	if r.FirstName != nil {
		i.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		i.LastName = *r.LastName
	}
	if r.Email != nil {
		i.Email = *r.Email
	}
	if r.Phone != nil {
		i.Phone = *r.Phone
	}
	if r.ContractType != nil {
		i.ContractType = *r.ContractType
	}
	if r.MissionStart != nil {
		v := *r.MissionStart
		i.MissionStart = &v
	}
	if r.MissionEnd != nil {
		v := *r.MissionEnd
		i.MissionEnd = &v
	}
	if r.ModuleIDs != nil {
		i.ModuleIDs = append([]string{}, (*r.ModuleIDs)...)
	}
	if r.ExpertiseDomains != nil {
		i.ExpertiseDomains = append([]string{}, (*r.ExpertiseDomains)...)
	}
	if r.Documents != nil {
		docs := *r.Documents
		docs.Diplomas = append([]string{}, docs.Diplomas...)
		i.Documents = docs
	}
	if r.Archived != nil {
		i.Archived = *r.Archived
	}
}
