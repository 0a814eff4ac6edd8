package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

// Rows mirror the tables; array columns use pq.StringArray and nested
// documents are stored as JSONB.

type cohortRow struct {
	ID                string         `db:"id"`
	Name              string         `db:"name"`
	SchoolYear        string         `db:"school_year"`
	ProgramType       string         `db:"program_type"`
	Status            string         `db:"status"`
	PlannedHeadcount  int            `db:"planned_headcount"`
	EnrolledHeadcount int            `db:"enrolled_headcount"`
	TotalHours        float64        `db:"total_hours"`
	StartDate         time.Time      `db:"start_date"`
	EndDate           time.Time      `db:"end_date"`
	ModuleIDs         pq.StringArray `db:"module_ids"`
	StudentIDs        pq.StringArray `db:"student_ids"`
	Instructors       types.JSONText `db:"instructors"`
	Billing           types.JSONText `db:"billing"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func newCohortRow(c models.Cohort) (cohortRow, error) {
	instructors := c.Instructors
	if instructors == nil {
		instructors = []models.InstructorAllocation{}
	}
	rawInstructors, err := json.Marshal(instructors)
	if err != nil {
		return cohortRow{}, fmt.Errorf("encode instructors: %w", err)
	}
	rawBilling, err := json.Marshal(c.Billing)
	if err != nil {
		return cohortRow{}, fmt.Errorf("encode billing: %w", err)
	}
	return cohortRow{
		ID:                c.ID,
		Name:              c.Name,
		SchoolYear:        c.SchoolYear,
		ProgramType:       string(c.ProgramType),
		Status:            string(c.Status),
		PlannedHeadcount:  c.PlannedHeadcount,
		EnrolledHeadcount: len(c.StudentIDs),
		TotalHours:        c.TotalHours,
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		ModuleIDs:         nonNil(c.ModuleIDs),
		StudentIDs:        nonNil(c.StudentIDs),
		Instructors:       types.JSONText(rawInstructors),
		Billing:           types.JSONText(rawBilling),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}, nil
}

func (r cohortRow) model() (models.Cohort, error) {
	c := models.Cohort{
		ID:                r.ID,
		Name:              r.Name,
		SchoolYear:        r.SchoolYear,
		ProgramType:       models.ProgramType(r.ProgramType),
		Status:            models.CohortStatus(r.Status),
		PlannedHeadcount:  r.PlannedHeadcount,
		EnrolledHeadcount: r.EnrolledHeadcount,
		TotalHours:        r.TotalHours,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		ModuleIDs:         nonNil(r.ModuleIDs),
		StudentIDs:        nonNil(r.StudentIDs),
		Instructors:       []models.InstructorAllocation{},
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if len(r.Instructors) > 0 {
		if err := r.Instructors.Unmarshal(&c.Instructors); err != nil {
			return c, fmt.Errorf("decode instructors of cohort %s: %w", r.ID, err)
		}
	}
	if len(r.Billing) > 0 {
		if err := r.Billing.Unmarshal(&c.Billing); err != nil {
			return c, fmt.Errorf("decode billing of cohort %s: %w", r.ID, err)
		}
	}
	return c, nil
}

type studentRow struct {
	ID              string         `db:"id"`
	FirstName       string         `db:"first_name"`
	LastName        string         `db:"last_name"`
	Email           string         `db:"email"`
	Phone           string         `db:"phone"`
	Status          string         `db:"enrollment_status"`
	CurrentCohortID *string        `db:"current_cohort_id"`
	CohortHistory   pq.StringArray `db:"cohort_history"`
	FinancingType   string         `db:"financing_type"`
	FinancingAmount float64        `db:"financing_amount"`
	AverageGrade    float64        `db:"average_grade"`
	PresenceRate    float64        `db:"presence_rate"`
	ProgressionRate float64        `db:"progression_rate"`
	Notes           types.JSONText `db:"notes"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func newStudentRow(s models.Student) (studentRow, error) {
	notes := s.Notes
	if notes == nil {
		notes = []models.StudentNote{}
	}
	rawNotes, err := json.Marshal(notes)
	if err != nil {
		return studentRow{}, fmt.Errorf("encode notes: %w", err)
	}
	row := studentRow{
		ID:              s.ID,
		FirstName:       s.FirstName,
		LastName:        s.LastName,
		Email:           s.Email,
		Phone:           s.Phone,
		Status:          string(s.Status),
		CohortHistory:   nonNil(s.CohortHistory),
		FinancingType:   string(s.FinancingType),
		FinancingAmount: s.FinancingAmount,
		AverageGrade:    s.AverageGrade,
		PresenceRate:    s.PresenceRate,
		ProgressionRate: s.ProgressionRate,
		Notes:           types.JSONText(rawNotes),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if id := s.CurrentCohort.ID(); id != "" {
		row.CurrentCohortID = &id
	}
	return row, nil
}

func (r studentRow) model() (models.Student, error) {
	s := models.Student{
		ID:              r.ID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Phone:           r.Phone,
		Status:          models.EnrollmentStatus(r.Status),
		CohortHistory:   nonNil(r.CohortHistory),
		FinancingType:   models.FinancingType(r.FinancingType),
		FinancingAmount: r.FinancingAmount,
		AverageGrade:    r.AverageGrade,
		PresenceRate:    r.PresenceRate,
		ProgressionRate: r.ProgressionRate,
		Notes:           []models.StudentNote{},
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.CurrentCohortID != nil {
		s.CurrentCohort = models.UnresolvedCohort(*r.CurrentCohortID)
	}
	if len(r.Notes) > 0 {
		if err := r.Notes.Unmarshal(&s.Notes); err != nil {
			return s, fmt.Errorf("decode notes of student %s: %w", r.ID, err)
		}
	}
	return s, nil
}

type instructorRow struct {
	ID               string         `db:"id"`
	FirstName        string         `db:"first_name"`
	LastName         string         `db:"last_name"`
	Email            string         `db:"email"`
	Phone            string         `db:"phone"`
	ContractType     string         `db:"contract_type"`
	MissionStart     *time.Time     `db:"mission_start"`
	MissionEnd       *time.Time     `db:"mission_end"`
	ModuleIDs        pq.StringArray `db:"module_ids"`
	ExpertiseDomains pq.StringArray `db:"expertise_domains"`
	Documents        types.JSONText `db:"documents"`
	Archived         bool           `db:"archived"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func newInstructorRow(i models.Instructor) (instructorRow, error) {
	rawDocs, err := json.Marshal(i.Documents)
	if err != nil {
		return instructorRow{}, fmt.Errorf("encode documents: %w", err)
	}
	return instructorRow{
		ID:               i.ID,
		FirstName:        i.FirstName,
		LastName:         i.LastName,
		Email:            i.Email,
		Phone:            i.Phone,
		ContractType:     string(i.ContractType),
		MissionStart:     i.MissionStart,
		MissionEnd:       i.MissionEnd,
		ModuleIDs:        nonNil(i.ModuleIDs),
		ExpertiseDomains: nonNil(i.ExpertiseDomains),
		Documents:        types.JSONText(rawDocs),
		Archived:         i.Archived,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}, nil
}

func (r instructorRow) model() (models.Instructor, error) {
	i := models.Instructor{
		ID:               r.ID,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Phone:            r.Phone,
		ContractType:     models.ContractType(r.ContractType),
		MissionStart:     r.MissionStart,
		MissionEnd:       r.MissionEnd,
		ModuleIDs:        nonNil(r.ModuleIDs),
		ExpertiseDomains: nonNil(r.ExpertiseDomains),
		Archived:         r.Archived,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if len(r.Documents) > 0 {
		if err := r.Documents.Unmarshal(&i.Documents); err != nil {
			return i, fmt.Errorf("decode documents of instructor %s: %w", r.ID, err)
		}
	}
	return i, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string{}, in...)
}

func target(db *sqlx.DB, exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}

func placeholder(args []interface{}) string {
	return fmt.Sprintf("$%d", len(args))
}
