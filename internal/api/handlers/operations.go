package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/service"
)

// OperationsHandler exposes manual triggers for the background workers.
type OperationsHandler struct {
	processor *service.ActionProcessor
	scheduler *service.FollowupScheduler
}

func NewOperationsHandler(p *service.ActionProcessor, s *service.FollowupScheduler) *OperationsHandler {
	return &OperationsHandler{processor: p, scheduler: s}
}

func (h *OperationsHandler) RunProcessor(w http.ResponseWriter, r *http.Request) {
	res, err := h.processor.RunOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type followupRunRequest struct {
	QuoteID   int64 `json:"quoteId"`
	Secondary bool  `json:"secondary"`
}

// RunFollowups runs one scheduler pass, or with a quoteId body creates a
// single follow-up for that quote.
func (h *OperationsHandler) RunFollowups(w http.ResponseWriter, r *http.Request) {
	var req followupRunRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.QuoteID == 0 {
		res, err := h.scheduler.RunOnce(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	a, err := h.scheduler.CreateFollowupAction(r.Context(), req.QuoteID, req.Secondary)
	switch {
	case errors.Is(err, service.ErrQuoteAlreadyFollowedUp):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrQuoteNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	case a == nil:
		writeError(w, http.StatusServiceUnavailable, "follow-up agent not configured")
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"action": a})
	}
}

type EventHandler struct {
	events domain.EventStore
}

func NewEventHandler(events domain.EventStore) *EventHandler {
	return &EventHandler{events: events}
}

// List returns recent events, newest first. ?type filters, ?limit caps (default 100).
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	events, err := h.events.List(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
