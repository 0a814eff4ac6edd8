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

type instructorService interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error)
	Get(ctx context.Context, id string) (*models.Instructor, error)
	Create(ctx context.Context, req dto.CreateInstructorRequest) (*models.Instructor, error)
	Update(ctx context.Context, id string, req dto.UpdateInstructorRequest) (*models.Instructor, error)
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// InstructorHandler exposes instructor endpoints.
type InstructorHandler struct {
	instructors instructorService
}

// NewInstructorHandler constructs InstructorHandler.
func NewInstructorHandler(instructors instructorService) *InstructorHandler {
	return &InstructorHandler{instructors: instructors}
}

// List godoc
// @Summary List instructors
// @Tags Intervenants
// @Produce json
// @Param q query string false "Search by name, email or expertise"
// @Param typeContrat query string false "Contract type"
// @Param archive query bool false "Archived flag"
// @Success 200 {object} response.Envelope
// @Router /intervenants [get]
func (h *InstructorHandler) List(c *gin.Context) {
	archived, err := optionalBool(c, "archive")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.InstructorFilter{
		Search:       strings.TrimSpace(c.Query("q")),
		ContractType: models.ContractType(c.Query("typeContrat")),
		Archived:     archived,
	}
	instructors, err := h.instructors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors, nil)
}

// Get godoc
// @Summary Get instructor detail
// @Tags Intervenants
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /intervenants/{id} [get]
func (h *InstructorHandler) Get(c *gin.Context) {
	instructor, err := h.instructors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// Create godoc
// @Summary Create instructor
// @Tags Intervenants
// @Accept json
// @Produce json
// @Param payload body dto.CreateInstructorRequest true "Instructor payload"
// @Success 201 {object} response.Envelope
// @Router /intervenants [post]
func (h *InstructorHandler) Create(c *gin.Context) {
	var req dto.CreateInstructorRequest
	if !bindJSON(c, &req) {
		return
	}
	instructor, err := h.instructors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instructor)
}

// Update godoc
// @Summary Update instructor
// @Tags Intervenants
// @Accept json
// @Produce json
// @Param id path string true "Instructor ID"
// @Param payload body dto.UpdateInstructorRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /intervenants/{id} [patch]
func (h *InstructorHandler) Update(c *gin.Context) {
	var req dto.UpdateInstructorRequest
	if !bindJSON(c, &req) {
		return
	}
	instructor, err := h.instructors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// Archive godoc
// @Summary Archive instructor
// @Tags Intervenants
// @Param id path string true "Instructor ID"
// @Success 204
// @Router /intervenants/{id}/archive [post]
func (h *InstructorHandler) Archive(c *gin.Context) {
	if err := h.instructors.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete instructor
// @Tags Intervenants
// @Param id path string true "Instructor ID"
// @Success 204
// @Router /intervenants/{id} [delete]
func (h *InstructorHandler) Delete(c *gin.Context) {
	if err := h.instructors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
