package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/meeting-assignments-api/internal/dto"
	"github.com/noah-isme/meeting-assignments-api/internal/middleware"
	"github.com/noah-isme/meeting-assignments-api/internal/policy"
	"github.com/noah-isme/meeting-assignments-api/internal/service"
	appErrors "github.com/noah-isme/meeting-assignments-api/pkg/errors"
	"github.com/noah-isme/meeting-assignments-api/pkg/response"
)

type assignmentService interface {
	Generate(ctx context.Context, req dto.GenerateAssignmentsRequest) (*dto.GenerateAssignmentsResponse, error)
	Save(ctx context.Context, req dto.SaveAssignmentsRequest) (*dto.SaveAssignmentsResponse, error)
	Validate(ctx context.Context, req dto.ValidateAssignmentsRequest) (*policy.Result, error)
	ListByWeek(ctx context.Context, query dto.AssignmentsQuery) ([]dto.AssignmentView, error)
	Rules(query dto.RulesQuery) ([]policy.Rule, error)
	Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportDocument, error)
}

// AssignmentHandler exposes assignment generation and validation endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Generate godoc
// @Summary Generate an assignment proposal for a meeting week
// @Description Runs the assignment engine and keeps the result as a proposal until it is saved or expires.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.GenerateAssignmentsRequest true "Generate assignments payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/generate [post]
func (h *AssignmentHandler) Generate(c *gin.Context) {
	var req dto.GenerateAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "partial", !result.Success)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// Save godoc
// @Summary Save an assignment proposal
// @Description Replaces the saved assignments of the proposal's week. Requires ADMIN or OVERSEER.
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SaveAssignmentsRequest true "Save assignments payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /assignments/save [post]
func (h *AssignmentHandler) Save(c *gin.Context) {
	var req dto.SaveAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	result, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		var violation *policy.ViolationError
		if errors.As(err, &violation) {
			response.ErrorWithMeta(c, err, map[string]interface{}{"validation": violation.Result})
			return
		}
		response.Error(c, err)
		return
	}
	if claims := middleware.ClaimsFromContext(c); claims != nil {
		middleware.SetMeta(c, "savedBy", claims.UserID)
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusCreated, response.Envelope{Data: result, Meta: middleware.ExtractMeta(c)})
}

// Validate godoc
// @Summary Validate assignments against the rule catalog
// @Description Validates the given assignments, or the saved ones of the week when none are given.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.ValidateAssignmentsRequest true "Validate assignments payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/validate [post]
func (h *AssignmentHandler) Validate(c *gin.Context) {
	var req dto.ValidateAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validate payload"))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List saved assignments of a week
// @Tags Assignments
// @Produce json
// @Param weekOf query string true "Week (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	var query dto.AssignmentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	views, err := h.service.ListByWeek(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, map[string]interface{}{"total": len(views)})
}

// Rules godoc
// @Summary List validation rules
// @Tags Assignments
// @Produce json
// @Param category query string false "qualification, pairing, scheduling or distribution"
// @Success 200 {object} response.Envelope
// @Router /assignments/rules [get]
func (h *AssignmentHandler) Rules(c *gin.Context) {
	rules, err := h.service.Rules(dto.RulesQuery{Category: c.Query("category")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, map[string]interface{}{"total": len(rules)})
}

// Export godoc
// @Summary Export the saved assignments of a week
// @Tags Assignments
// @Produce text/csv
// @Produce application/pdf
// @Param weekOf query string true "Week (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /assignments/export [get]
func (h *AssignmentHandler) Export(c *gin.Context) {
	query := dto.ExportQuery{WeekOf: c.Query("weekOf"), Format: c.Query("format")}
	doc, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.ContentType, doc.Filename, doc.Payload)
}
