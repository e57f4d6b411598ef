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

type EmployeeHandler struct {
	svc *service.WorkforceService
}

func NewEmployeeHandler(svc *service.WorkforceService) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

type createEmployeeRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FullName == "" {
		writeError(w, http.StatusBadRequest, "fullName is required")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	e := &domain.Employee{FullName: req.FullName, Email: req.Email, Role: req.Role}
	if err := h.svc.CreateEmployee(r.Context(), e); err != nil {
		if errors.Is(err, service.ErrEmployeeConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create employee")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EmployeeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}
	e, err := h.svc.GetEmployee(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrEmployeeNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get employee")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type AgentHandler struct {
	svc   *service.WorkforceService
	queue *service.ActionQueue
}

func NewAgentHandler(svc *service.WorkforceService, queue *service.ActionQueue) *AgentHandler {
	return &AgentHandler{svc: svc, queue: queue}
}

type createAgentRequest struct {
	CodeName    string   `json:"codeName"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	OwnerEmpID  string   `json:"ownerEmpId"`
}

func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CodeName == "" {
		writeError(w, http.StatusBadRequest, "codeName is required")
		return
	}
	owner, err := uuid.Parse(req.OwnerEmpID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ownerEmpId is required")
		return
	}

	a := &domain.Agent{
		CodeName:    req.CodeName,
		Description: req.Description,
		Skills:      req.Skills,
		OwnerEmpID:  owner,
	}
	if err := h.svc.CreateAgent(r.Context(), a); err != nil {
		switch {
		case errors.Is(err, service.ErrAgentConflict):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrAgentOwnerNotFound):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create agent")
		}
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// List filters by ?owner=<employee id> or ?skills=a,b. One of them is required.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		agents []domain.Agent
		err    error
	)
	switch {
	case q.Get("owner") != "":
		owner, perr := uuid.Parse(q.Get("owner"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid owner id")
			return
		}
		agents, err = h.svc.ListAgentsByOwner(r.Context(), owner)
	case q.Get("skills") != "":
		agents, err = h.svc.ListAgentsWithSkills(r.Context(), strings.Split(q.Get("skills"), ","))
	default:
		writeError(w, http.StatusBadRequest, "owner or skills filter is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list agents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

// GetByID accepts either an agent UUID or a code name.
func (h *AgentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "id")
	var (
		a   *domain.Agent
		err error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		a, err = h.svc.GetAgent(r.Context(), id)
	} else {
		a, err = h.svc.GetAgentByCodeName(r.Context(), ref)
	}
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get agent")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// PendingActions lists the agent's actions awaiting a decision.
func (h *AgentHandler) PendingActions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	if _, err := h.svc.GetAgent(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get agent")
		return
	}
	actions, err := h.queue.ListPendingByAgent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch actions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}
