package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/service"
)

// IdempotencyKeyHeader deduplicates POST /api/actions.
const IdempotencyKeyHeader = "Idempotency-Key"

type ActionHandler struct {
	queue *service.ActionQueue
}

func NewActionHandler(queue *service.ActionQueue) *ActionHandler {
	return &ActionHandler{queue: queue}
}

type createActionRequest struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedBy string         `json:"createdBy"`
}

type decideRequest struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.ActionStatus
	if s := r.URL.Query().Get("status"); s != "" {
		if !domain.ValidActionStatus(s) {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		st := domain.ActionStatus(s)
		status = &st
	}

	actions, err := h.queue.List(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch actions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

func (h *ActionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a := &domain.Action{Type: req.Type, Payload: req.Payload}
	if req.CreatedBy != "" {
		id, err := uuid.Parse(req.CreatedBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid createdBy")
			return
		}
		a.CreatedBy = id
	}
	if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
		a.IdempotencyKey = &key
	}

	action, created, err := h.queue.Create(r.Context(), a)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrAgentNotFound):
			writeError(w, http.StatusBadRequest, "createdBy agent not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create action")
		}
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"action": action})
}

func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := actionID(w, r)
	if !ok {
		return
	}
	action, err := h.queue.Get(r.Context(), id)
	if err != nil {
		h.writeQueueError(w, err, "Failed to fetch action")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"action": action})
}

func (h *ActionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, employeeID, _, ok := decisionParams(w, r)
	if !ok {
		return
	}
	action, err := h.queue.Approve(r.Context(), id, employeeID)
	if err != nil {
		h.writeQueueError(w, err, "Failed to approve action")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"action": action})
}

func (h *ActionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, employeeID, reason, ok := decisionParams(w, r)
	if !ok {
		return
	}
	action, err := h.queue.Reject(r.Context(), id, employeeID, reason)
	if err != nil {
		h.writeQueueError(w, err, "Failed to reject action")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"action": action})
}

func (h *ActionHandler) writeQueueError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrActionNotFound):
		writeError(w, http.StatusNotFound, "Action not found")
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEmployeeNotFound):
		writeError(w, http.StatusBadRequest, "Employee not found")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// actionID parses the {id} path parameter. Ids that are not UUIDs cannot name
// an action, so they are reported as not found.
func actionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Action ID is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "Action not found")
		return uuid.Nil, false
	}
	return id, true
}

func decisionParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, string, bool) {
	var req decideRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return uuid.Nil, uuid.Nil, "", false
	}
	if strings.TrimSpace(chi.URLParam(r, "id")) == "" || strings.TrimSpace(req.EmployeeID) == "" {
		writeError(w, http.StatusBadRequest, "Action ID and employee ID are required")
		return uuid.Nil, uuid.Nil, "", false
	}
	id, ok := actionID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, "", false
	}
	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid employeeId")
		return uuid.Nil, uuid.Nil, "", false
	}
	return id, employeeID, req.Reason, true
}
