package filter

import "github.com/noah-isme/cohort-ledger-api/internal/models"

// Students filters on prenom, nom and email plus status, cohort and financing.
func Students(items []models.Student, f models.StudentFilter) []models.Student {
	return Apply(items,
		Text(f.Search, func(s models.Student) []string { return []string{s.FirstName, s.LastName, s.Email, s.FullName()} }),
		Equal(f.Status, func(s models.Student) models.EnrollmentStatus { return s.Status }),
		Equal(f.CohortID, func(s models.Student) string { return s.CurrentCohort.ID() }),
		Equal(f.FinancingType, func(s models.Student) models.FinancingType { return s.FinancingType }),
	)
}

// Cohorts filters on nom and anneeScolaire plus status, program and year.
func Cohorts(items []models.Cohort, f models.CohortFilter) []models.Cohort {
	return Apply(items,
		Text(f.Search, func(c models.Cohort) []string { return []string{c.Name, c.SchoolYear} }),
		Equal(f.Status, func(c models.Cohort) models.CohortStatus { return c.Status }),
		Equal(f.ProgramType, func(c models.Cohort) models.ProgramType { return c.ProgramType }),
		Equal(f.SchoolYear, func(c models.Cohort) string { return c.SchoolYear }),
	)
}

// Modules filters on nom and code plus semester and active flag.
func Modules(items []models.Module, f models.ModuleFilter) []models.Module {
	return Apply(items,
		Text(f.Search, func(m models.Module) []string { return []string{m.Name, m.Code} }),
		Equal(f.Semester, func(m models.Module) string { return m.Semester }),
		Flag(f.Active, func(m models.Module) bool { return m.Active }),
	)
}

// Instructors filters on names, email and expertise plus contract type and archive flag.
func Instructors(items []models.Instructor, f models.InstructorFilter) []models.Instructor {
	return Apply(items,
		Text(f.Search, func(i models.Instructor) []string {
			fields := []string{i.FirstName, i.LastName, i.Email}
			return append(fields, i.ExpertiseDomains...)
		}),
		Equal(f.ContractType, func(i models.Instructor) models.ContractType { return i.ContractType }),
		Flag(f.Archived, func(i models.Instructor) bool { return i.Archived }),
	)
}
