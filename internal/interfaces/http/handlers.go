package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jthornton/solar-workflow/internal/application/report"
	"github.com/jthornton/solar-workflow/internal/application/service"
	"github.com/jthornton/solar-workflow/internal/domain/payload"
	"github.com/jthornton/solar-workflow/pkg/utils"
)

// userRefHeader carries the caller's external identity (the CRM user key).
const userRefHeader = "X-User-Ref"

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflowService service.WorkflowService
	adminService    service.AdminService
	exporter        *report.Exporter
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	workflowService service.WorkflowService,
	adminService service.AdminService,
	exporter *report.Exporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflowService: workflowService,
		adminService:    adminService,
		exporter:        exporter,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// StepUpdateRequest is the body for out-of-band step edits
type StepUpdateRequest struct {
	Status string                 `json:"status" binding:"required"`
	Data   map[string]interface{} `json:"data"`
}

// StepCompleteRequest is the body for step completion
type StepCompleteRequest struct {
	Data map[string]interface{} `json:"data"`
}

// StatusUpdateRequest is the body for pause/resume/cancel
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// StartWorkflow handles POST /api/workflows/:opportunityId/start
func (h *Handlers) StartWorkflow(c *gin.Context) {
	opportunityID, ok := h.opportunityID(c)
	if !ok {
		return
	}

	progress, err := h.workflowService.Start(c.Request.Context(), c.GetHeader(userRefHeader), opportunityID)
	if err != nil {
		h.respondError(c, "start workflow", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    progress,
	})
}

// GetWorkflow handles GET /api/workflows/:opportunityId
func (h *Handlers) GetWorkflow(c *gin.Context) {
	opportunityID, ok := h.opportunityID(c)
	if !ok {
		return
	}

	progress, err := h.workflowService.GetProgress(c.Request.Context(), c.GetHeader(userRefHeader), opportunityID)
	if err != nil {
		h.respondError(c, "get workflow", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    progress,
	})
}

// UpdateStep handles PUT /api/workflows/:opportunityId/steps/:stepNumber
func (h *Handlers) UpdateStep(c *gin.Context) {
	opportunityID, ok := h.opportunityID(c)
	if !ok {
		return
	}
	stepNumber, ok := h.stepNumber(c)
	if !ok {
		return
	}

	var req StepUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	progress, err := h.workflowService.UpdateStep(c.Request.Context(),
		c.GetHeader(userRefHeader), opportunityID, stepNumber, req.Status, payload.Payload(req.Data))
	if err != nil {
		h.respondError(c, "update step", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    progress,
	})
}

// CompleteStep handles POST /api/workflows/:opportunityId/steps/:stepNumber/complete
func (h *Handlers) CompleteStep(c *gin.Context) {
	opportunityID, ok := h.opportunityID(c)
	if !ok {
		return
	}
	stepNumber, ok := h.stepNumber(c)
	if !ok {
		return
	}

	// Body is optional; most steps complete without extra data
	var req StepCompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid request body")
			return
		}
	}

	progress, err := h.workflowService.CompleteStep(c.Request.Context(),
		c.GetHeader(userRefHeader), opportunityID, stepNumber, payload.Payload(req.Data))
	if err != nil {
		h.respondError(c, "complete step", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    progress,
	})
}

// UpdateWorkflowStatus handles PUT /api/workflows/:opportunityId/status
func (h *Handlers) UpdateWorkflowStatus(c *gin.Context) {
	opportunityID, ok := h.opportunityID(c)
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	progress, err := h.workflowService.UpdateProgressStatus(c.Request.Context(),
		c.GetHeader(userRefHeader), opportunityID, req.Status)
	if err != nil {
		h.respondError(c, "update workflow status", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    progress,
	})
}

// ResetWorkflow handles POST /api/workflows/:opportunityId/reset
func (h *Handlers) ResetWorkflow(c *gin.Context) {
	opportunityID, ok := h.opportunityID(c)
	if !ok {
		return
	}

	progress, err := h.workflowService.Reset(c.Request.Context(), c.GetHeader(userRefHeader), opportunityID)
	if err != nil {
		h.respondError(c, "reset workflow", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    progress,
	})
}

// ClearWorkflows handles DELETE /api/workflows
func (h *Handlers) ClearWorkflows(c *gin.Context) {
	if err := h.workflowService.ClearAll(c.Request.Context(), c.GetHeader(userRefHeader)); err != nil {
		h.respondError(c, "clear workflows", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
	})
}

// ListWorkflows handles GET /api/workflows
func (h *Handlers) ListWorkflows(c *gin.Context) {
	workflows, err := h.workflowService.ListUserWorkflows(c.Request.Context(), c.GetHeader(userRefHeader))
	if err != nil {
		h.respondError(c, "list workflows", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    workflows,
	})
}

// ListStepTemplates handles GET /api/workflows/templates
func (h *Handlers) ListStepTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.workflowService.ListStepTemplates(),
	})
}

// ListAllWorkflows handles GET /api/admin/workflows
func (h *Handlers) ListAllWorkflows(c *gin.Context) {
	rows, err := h.adminService.ListAllWorkflowsForAdmin(c.Request.Context())
	if err != nil {
		h.respondError(c, "list all workflows", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    rows,
	})
}

// ExportWorkflows handles GET /api/admin/workflows/export
func (h *Handlers) ExportWorkflows(c *gin.Context) {
	rows, err := h.adminService.ListAllWorkflowsForAdmin(c.Request.Context())
	if err != nil {
		h.respondError(c, "export workflows", err)
		return
	}

	filename := fmt.Sprintf("workflows-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.exporter.Write(rows, c.Writer); err != nil {
		h.logger.Error("Workbook export failed", "error", err)
	}
}

// opportunityID extracts and validates the opportunity ID path parameter
func (h *Handlers) opportunityID(c *gin.Context) (string, bool) {
	id := c.Param("opportunityId")
	if err := utils.ValidateOpportunityID(id); err != nil {
		h.badRequest(c, err.Error())
		return "", false
	}
	return id, true
}

// stepNumber extracts the step number path parameter
func (h *Handlers) stepNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("stepNumber"))
	if err != nil || n < 1 {
		h.badRequest(c, "invalid step number")
		return 0, false
	}
	return n, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}

// respondError maps service errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   err.Error(),
		})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
	case errors.Is(err, service.ErrUnresolvedIdentity):
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   err.Error(),
		})
	default:
		h.logger.Error("Request failed", "operation", op, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal error",
		})
	}
}
