package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/pkg/response"
)

type cohortService interface {
	List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, error)
	Get(ctx context.Context, id string) (*models.Cohort, error)
	Create(ctx context.Context, req dto.CreateCohortRequest) (*models.Cohort, error)
	Update(ctx context.Context, id string, req dto.UpdateCohortRequest) (*models.Cohort, error)
	Delete(ctx context.Context, id string) error
	EnrollStudents(ctx context.Context, cohortID string, req dto.CohortStudentsRequest) (*dto.CohortMutationResponse, error)
	UnenrollStudents(ctx context.Context, cohortID string, req dto.CohortStudentsRequest) (*dto.CohortMutationResponse, error)
	AssignInstructor(ctx context.Context, cohortID string, req dto.AssignInstructorRequest) (*dto.CohortMutationResponse, error)
	RemoveInstructor(ctx context.Context, cohortID string, req dto.RemoveInstructorRequest) (*dto.CohortMutationResponse, error)
}

// CohortHandler exposes cohort endpoints.
type CohortHandler struct {
	cohorts cohortService
}

// NewCohortHandler constructs CohortHandler.
func NewCohortHandler(cohorts cohortService) *CohortHandler {
	return &CohortHandler{cohorts: cohorts}
}

// List godoc
// @Summary List cohorts
// @Tags Cohortes
// @Produce json
// @Param q query string false "Search by name or school year"
// @Param statut query string false "Status filter"
// @Param typeFormation query string false "Program type filter"
// @Param anneeScolaire query string false "School year filter"
// @Success 200 {object} response.Envelope
// @Router /cohortes [get]
func (h *CohortHandler) List(c *gin.Context) {
	filter := models.CohortFilter{
		Search:      strings.TrimSpace(c.Query("q")),
		Status:      models.CohortStatus(c.Query("statut")),
		ProgramType: models.ProgramType(c.Query("typeFormation")),
		SchoolYear:  c.Query("anneeScolaire"),
	}
	cohorts, err := h.cohorts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohorts, nil)
}

// Get godoc
// @Summary Get cohort detail
// @Tags Cohortes
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cohortes/{id} [get]
func (h *CohortHandler) Get(c *gin.Context) {
	cohort, err := h.cohorts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohort, nil)
}

// Create godoc
// @Summary Create cohort
// @Tags Cohortes
// @Accept json
// @Produce json
// @Param payload body dto.CreateCohortRequest true "Cohort payload"
// @Success 201 {object} response.Envelope
// @Router /cohortes [post]
func (h *CohortHandler) Create(c *gin.Context) {
	var req dto.CreateCohortRequest
	if !bindJSON(c, &req) {
		return
	}
	cohort, err := h.cohorts.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cohort)
}

// Update godoc
// @Summary Update cohort
// @Tags Cohortes
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body dto.UpdateCohortRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /cohortes/{id} [patch]
func (h *CohortHandler) Update(c *gin.Context) {
	var req dto.UpdateCohortRequest
	if !bindJSON(c, &req) {
		return
	}
	cohort, err := h.cohorts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohort, nil)
}

// Delete godoc
// @Summary Delete cohort
// @Tags Cohortes
// @Param id path string true "Cohort ID"
// @Success 204
// @Router /cohortes/{id} [delete]
func (h *CohortHandler) Delete(c *gin.Context) {
	if err := h.cohorts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EnrollStudents godoc
// @Summary Add students to the cohort roster
// @Tags Cohortes
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body dto.CohortStudentsRequest true "Student ids"
// @Success 200 {object} response.Envelope
// @Router /cohortes/{id}/students [post]
func (h *CohortHandler) EnrollStudents(c *gin.Context) {
	var req dto.CohortStudentsRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.cohorts.EnrollStudents(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// UnenrollStudents godoc
// @Summary Remove students from the cohort roster
// @Tags Cohortes
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body dto.CohortStudentsRequest true "Student ids"
// @Success 200 {object} response.Envelope
// @Router /cohortes/{id}/students [delete]
func (h *CohortHandler) UnenrollStudents(c *gin.Context) {
	var req dto.CohortStudentsRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.cohorts.UnenrollStudents(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// AssignInstructor godoc
// @Summary Allocate hours to an instructor
// @Tags Cohortes
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body dto.AssignInstructorRequest true "Allocation"
// @Success 200 {object} response.Envelope
// @Router /cohortes/{id}/intervenants [post]
func (h *CohortHandler) AssignInstructor(c *gin.Context) {
	var req dto.AssignInstructorRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.cohorts.AssignInstructor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// RemoveInstructor godoc
// @Summary Remove an instructor allocation
// @Tags Cohortes
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body dto.RemoveInstructorRequest true "Instructor"
// @Success 200 {object} response.Envelope
// @Router /cohortes/{id}/intervenants [delete]
func (h *CohortHandler) RemoveInstructor(c *gin.Context) {
	var req dto.RemoveInstructorRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.cohorts.RemoveInstructor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
