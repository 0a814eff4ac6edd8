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

type moduleService interface {
	List(ctx context.Context, filter models.ModuleFilter) ([]models.Module, error)
	Get(ctx context.Context, id string) (*models.Module, error)
	Create(ctx context.Context, req dto.CreateModuleRequest) (*models.Module, error)
	Update(ctx context.Context, id string, req dto.UpdateModuleRequest) (*models.Module, error)
	Delete(ctx context.Context, id string) error
}

// ModuleHandler exposes teaching module endpoints.
type ModuleHandler struct {
	modules moduleService
}

// NewModuleHandler constructs ModuleHandler.
func NewModuleHandler(modules moduleService) *ModuleHandler {
	return &ModuleHandler{modules: modules}
}

// List godoc
// @Summary List modules
// @Tags Modules
// @Produce json
// @Param q query string false "Search by name or code"
// @Param semestre query string false "Semester"
// @Param actif query bool false "Active flag"
// @Success 200 {object} response.Envelope
// @Router /modules [get]
func (h *ModuleHandler) List(c *gin.Context) {
	active, err := optionalBool(c, "actif")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ModuleFilter{
		Search:   strings.TrimSpace(c.Query("q")),
		Semester: c.Query("semestre"),
		Active:   active,
	}
	modules, err := h.modules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, modules, nil)
}

// Get godoc
// @Summary Get module detail
// @Tags Modules
// @Produce json
// @Param id path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Router /modules/{id} [get]
func (h *ModuleHandler) Get(c *gin.Context) {
	module, err := h.modules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// Create godoc
// @Summary Create module
// @Tags Modules
// @Accept json
// @Produce json
// @Param payload body dto.CreateModuleRequest true "Module payload"
// @Success 201 {object} response.Envelope
// @Router /modules [post]
func (h *ModuleHandler) Create(c *gin.Context) {
	var req dto.CreateModuleRequest
	if !bindJSON(c, &req) {
		return
	}
	module, err := h.modules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module)
}

// Update godoc
// @Summary Update module
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path string true "Module ID"
// @Param payload body dto.UpdateModuleRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /modules/{id} [patch]
func (h *ModuleHandler) Update(c *gin.Context) {
	var req dto.UpdateModuleRequest
	if !bindJSON(c, &req) {
		return
	}
	module, err := h.modules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// Delete godoc
// @Summary Delete module
// @Tags Modules
// @Param id path string true "Module ID"
// @Success 204
// @Router /modules/{id} [delete]
func (h *ModuleHandler) Delete(c *gin.Context) {
	if err := h.modules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
