// Package handler provides HTTP request handlers for the application.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/middleware"
	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/scheduler"
	"github.com/leadpilot/outreach-router/internal/service"
)

const (
	errorCodeValidation              = "VALIDATION_ERROR"
	errorCodeNotFound                = "NOT_FOUND"
	errorCodeConflict                = "CONFLICT"
	errorCodeBadRequest              = "BAD_REQUEST"
	errorCodeSchedulerAlreadyRunning = "SCHEDULER_ALREADY_RUNNING"
	errorCodeSchedulerNotRunning     = "SCHEDULER_NOT_RUNNING"
)

type Handler struct {
	service *service.Service
	logger  *zap.Logger
}

// NewHandler creates a new handler instance.
func NewHandler(service *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type createLeadRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	Source    string `json:"source"`
	Tags      string `json:"tags"`
}

func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeBadRequest, "invalid JSON body")
		return
	}

	lead, err := h.service.Lead.CreateLead(r.Context(), &models.Lead{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		City:      req.City,
		Source:    req.Source,
		Tags:      req.Tags,
	})
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to create lead")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, lead)
}

func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.service.Lead.ListLeads(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to list leads")
		return
	}

	render.JSON(w, r, leads)
}

type contactRequest struct {
	Channel    string `json:"channel"`
	ExternalID string `json:"external_id"`
}

func (h *Handler) SetLeadContact(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeBadRequest, "invalid JSON body")
		return
	}

	contact, err := h.service.Lead.SetLeadContact(r.Context(), leadID, req.Channel, req.ExternalID)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to set lead contact")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, contact)
}

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.service.Lead.ListContacts(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to list contacts")
		return
	}

	render.JSON(w, r, contacts)
}

func (h *Handler) ListLeadEvents(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	events, err := h.service.Lead.ListLeadEvents(r.Context(), leadID)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to list lead events")
		return
	}

	render.JSON(w, r, events)
}

type createDraftRequest struct {
	LeadID     string `json:"lead_id"`
	Channel    string `json:"channel"`
	ActionType string `json:"action_type"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Text       string `json:"text"`
	Campaign   string `json:"campaign"`
	Notes      string `json:"notes"`
}

func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeBadRequest, "invalid JSON body")
		return
	}

	approval, err := h.service.Approval.CreateDraft(r.Context(), service.CreateDraftInput{
		LeadID:     req.LeadID,
		Channel:    req.Channel,
		ActionType: req.ActionType,
		To:         req.To,
		Subject:    req.Subject,
		Text:       req.Text,
		Campaign:   req.Campaign,
		Notes:      req.Notes,
	})
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to create draft")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, approval)
}

type decisionRequest struct {
	ApproverID string `json:"approver_id"`
	Reason     string `json:"reason"`
}

func (h *Handler) ApproveDraft(w http.ResponseWriter, r *http.Request) {
	approvalID := chi.URLParam(r, "approvalID")

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeBadRequest, "invalid JSON body")
		return
	}

	approval, err := h.service.Approval.Approve(r.Context(), approvalID, req.ApproverID)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to approve draft")
		return
	}

	render.JSON(w, r, approval)
}

func (h *Handler) RejectDraft(w http.ResponseWriter, r *http.Request) {
	approvalID := chi.URLParam(r, "approvalID")

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeBadRequest, "invalid JSON body")
		return
	}

	approval, err := h.service.Approval.Reject(r.Context(), approvalID, req.ApproverID, req.Reason)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to reject draft")
		return
	}

	render.JSON(w, r, approval)
}

func (h *Handler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := h.service.Approval.ListPending(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to list pending approvals")
		return
	}

	render.JSON(w, r, approvals)
}

func (h *Handler) ListApprovedApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := h.service.Approval.ListApproved(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to list approved approvals")
		return
	}

	render.JSON(w, r, approvals)
}

type dncRequest struct {
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (h *Handler) AddDncEntry(w http.ResponseWriter, r *http.Request) {
	var req dncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeBadRequest, "invalid JSON body")
		return
	}

	entry, err := h.service.Dnc.Add(r.Context(), req.Value, req.Reason)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to add DNC entry")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, entry)
}

func (h *Handler) RemoveDncEntry(w http.ResponseWriter, r *http.Request) {
	var req dncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.service.Dnc.Remove(r.Context(), req.Value); err != nil {
		h.handleServiceError(w, r, err, "Failed to remove DNC entry")
		return
	}

	render.NoContent(w, r)
}

func (h *Handler) ListDncEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Dnc.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to list DNC entries")
		return
	}

	render.JSON(w, r, entries)
}

type processRequest struct {
	MaxBatchSize int `json:"max_batch_size"`
}

// ProcessBatch triggers one routing cycle outside the scheduler, for
// operators. Safe to run while the scheduler is active.
func (h *Handler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	req := processRequest{MaxBatchSize: 25}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.sendError(w, r, http.StatusBadRequest, errorCodeBadRequest, "invalid JSON body")
			return
		}
	}

	result, err := h.service.Router.ProcessApproved(r.Context(), req.MaxBatchSize)
	if err != nil {
		h.handleServiceError(w, r, err, "Routing cycle failed")
		return
	}

	render.JSON(w, r, result)
}

func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Scheduler.Start(); err != nil {
		if errors.Is(err, scheduler.ErrSchedulerAlreadyRunning) {
			h.sendError(w, r, http.StatusConflict, errorCodeSchedulerAlreadyRunning, "Scheduler is already running")
			return
		}
		h.handleServiceError(w, r, err, "Failed to start scheduler")
		return
	}

	render.JSON(w, r, map[string]string{"status": "started"})
}

func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Scheduler.Stop(); err != nil {
		if errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			h.sendError(w, r, http.StatusConflict, errorCodeSchedulerNotRunning, "Scheduler is not running")
			return
		}
		h.handleServiceError(w, r, err, "Failed to stop scheduler")
		return
	}

	render.JSON(w, r, map[string]string{"status": "stopped"})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health.GetHealth()

	if health.Status == service.StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	render.JSON(w, r, health)
}

// handleServiceError maps the error taxonomy onto HTTP statuses. The
// operator sees the reason, never a raw adapter or store error.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case apperrors.IsValidation(err):
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		h.sendError(w, r, http.StatusNotFound, errorCodeNotFound, "resource not found")
	case apperrors.IsConflict(err):
		h.sendError(w, r, http.StatusConflict, errorCodeConflict, err.Error())
	default:
		requestID := middleware.GetRequestID(r.Context())
		h.logger.Error(logMsg,
			zap.String("request_id", requestID),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, middleware.ErrorCodeInternal, "An internal error occurred")
	}
}

type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, errorResponse{
		Error:     errorCode,
		Message:   message,
		Timestamp: time.Now(),
	})
}
