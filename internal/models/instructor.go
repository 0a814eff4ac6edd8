package models

import "time"

// ContractType describes how an instructor is engaged.
type ContractType string

const (
	ContractFreelance ContractType = "freelance"
	ContractFixedTerm ContractType = "fixed_term"
	ContractPermanent ContractType = "permanent"
	ContractTemporary ContractType = "temporary"
)

// Valid returns true when the contract type is supported.
func (c ContractType) Valid() bool {
	switch c {
	case ContractFreelance, ContractFixedTerm, ContractPermanent, ContractTemporary:
		return true
	default:
		return false
	}
}

// InstructorDocuments references administrative proofs by URL.
type InstructorDocuments struct {
	SIRET            string   `json:"siret,omitempty"`
	InsuranceProof   string   `json:"attestationAssurance,omitempty"`
	IdentityDocument string   `json:"pieceIdentite,omitempty"`
	Diplomas         []string `json:"diplomes,omitempty"`
}

// Instructor is a teaching contributor.
type Instructor struct {
	ID               string              `json:"id"`
	FirstName        string              `json:"prenom"`
	LastName         string              `json:"nom"`
	Email            string              `json:"email"`
	Phone            string              `json:"telephone"`
	ContractType     ContractType        `json:"typeContrat"`
	MissionStart     *time.Time          `json:"dateDebutMission,omitempty"`
	MissionEnd       *time.Time          `json:"dateFinMission,omitempty"`
	ModuleIDs        []string            `json:"modulesEnseignes"`
	ExpertiseDomains []string            `json:"domainesExpertise"`
	Documents        InstructorDocuments `json:"documents"`
	Archived         bool                `json:"archive"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// EntityID implements the store entity contract.
func (i Instructor) EntityID() string { return i.ID }

// Clone returns a deep copy of the instructor.
func (i Instructor) Clone() Instructor {
	out := i
	if i.MissionStart != nil {
		v := *i.MissionStart
		out.MissionStart = &v
	}
	if i.MissionEnd != nil {
		v := *i.MissionEnd
		out.MissionEnd = &v
	}
	out.ModuleIDs = cloneStrings(i.ModuleIDs)
	out.ExpertiseDomains = cloneStrings(i.ExpertiseDomains)
	out.Documents.Diplomas = cloneStrings(i.Documents.Diplomas)
	return out
}

// InstructorFilter captures categorical filters for instructors.
type InstructorFilter struct {
	Search       string
	ContractType ContractType
	Archived     *bool
}
