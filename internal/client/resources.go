package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

// ListCohorts fetches the whole cohort collection.
func (c *Client) ListCohorts(ctx context.Context) ([]models.Cohort, error) {
	return get[[]models.Cohort](ctx, c, "/cohortes", nil)
}

func (c *Client) GetCohort(ctx context.Context, id string) (models.Cohort, error) {
	return get[models.Cohort](ctx, c, "/cohortes/"+escape(id), nil)
}

func (c *Client) CreateCohort(ctx context.Context, req dto.CreateCohortRequest) (models.Cohort, error) {
	return call[models.Cohort](ctx, c, http.MethodPost, "/cohortes", req)
}

func (c *Client) UpdateCohort(ctx context.Context, id string, req dto.UpdateCohortRequest) (models.Cohort, error) {
	return call[models.Cohort](ctx, c, http.MethodPatch, "/cohortes/"+escape(id), req)
}

func (c *Client) DeleteCohort(ctx context.Context, id string) error {
	return c.remove(ctx, "/cohortes/"+escape(id))
}

// EnrollStudents adds students to the cohort roster.
func (c *Client) EnrollStudents(ctx context.Context, cohortID string, studentIDs []string) (dto.CohortMutationResponse, error) {
	return call[dto.CohortMutationResponse](ctx, c, http.MethodPost, "/cohortes/"+escape(cohortID)+"/students",
		dto.CohortStudentsRequest{StudentIDs: studentIDs})
}

// UnenrollStudents removes students from the cohort roster.
func (c *Client) UnenrollStudents(ctx context.Context, cohortID string, studentIDs []string) (dto.CohortMutationResponse, error) {
	return call[dto.CohortMutationResponse](ctx, c, http.MethodDelete, "/cohortes/"+escape(cohortID)+"/students",
		dto.CohortStudentsRequest{StudentIDs: studentIDs})
}

func (c *Client) AssignInstructor(ctx context.Context, cohortID string, req dto.AssignInstructorRequest) (dto.CohortMutationResponse, error) {
	return call[dto.CohortMutationResponse](ctx, c, http.MethodPost, "/cohortes/"+escape(cohortID)+"/intervenants", req)
}

func (c *Client) RemoveInstructor(ctx context.Context, cohortID, instructorID string) (dto.CohortMutationResponse, error) {
	return call[dto.CohortMutationResponse](ctx, c, http.MethodDelete, "/cohortes/"+escape(cohortID)+"/intervenants",
		dto.RemoveInstructorRequest{InstructorID: instructorID})
}

// ListStudents fetches students, optionally narrowed by the server side filter.
func (c *Client) ListStudents(ctx context.Context, q dto.StudentListQuery) ([]models.Student, error) {
	query := url.Values{}
	setIf(query, "q", q.Search)
	setIf(query, "statut", q.Status)
	setIf(query, "cohorte", q.CohortID)
	setIf(query, "financement", q.FinancingType)
	return get[[]models.Student](ctx, c, "/etudiants", query)
}

func (c *Client) GetStudent(ctx context.Context, id string) (models.Student, error) {
	return get[models.Student](ctx, c, "/etudiants/"+escape(id), nil)
}

func (c *Client) CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (models.Student, error) {
	return call[models.Student](ctx, c, http.MethodPost, "/etudiants", req)
}

func (c *Client) UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (models.Student, error) {
	return call[models.Student](ctx, c, http.MethodPatch, "/etudiants/"+escape(id), req)
}

func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.remove(ctx, "/etudiants/"+escape(id))
}

// StudentStats fetches the population summary.
func (c *Client) StudentStats(ctx context.Context) (models.StudentStats, error) {
	return get[models.StudentStats](ctx, c, "/etudiants/stats", nil)
}

func (c *Client) ListInstructors(ctx context.Context) ([]models.Instructor, error) {
	return get[[]models.Instructor](ctx, c, "/intervenants", nil)
}

func (c *Client) CreateInstructor(ctx context.Context, req dto.CreateInstructorRequest) (models.Instructor, error) {
	return call[models.Instructor](ctx, c, http.MethodPost, "/intervenants", req)
}

func (c *Client) UpdateInstructor(ctx context.Context, id string, req dto.UpdateInstructorRequest) (models.Instructor, error) {
	return call[models.Instructor](ctx, c, http.MethodPatch, "/intervenants/"+escape(id), req)
}

func (c *Client) DeleteInstructor(ctx context.Context, id string) error {
	return c.remove(ctx, "/intervenants/"+escape(id))
}

func (c *Client) ListModules(ctx context.Context) ([]models.Module, error) {
	return get[[]models.Module](ctx, c, "/modules", nil)
}

func (c *Client) CreateModule(ctx context.Context, req dto.CreateModuleRequest) (models.Module, error) {
	return call[models.Module](ctx, c, http.MethodPost, "/modules", req)
}

func (c *Client) UpdateModule(ctx context.Context, id string, req dto.UpdateModuleRequest) (models.Module, error) {
	return call[models.Module](ctx, c, http.MethodPatch, "/modules/"+escape(id), req)
}

func (c *Client) DeleteModule(ctx context.Context, id string) error {
	return c.remove(ctx, "/modules/"+escape(id))
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
