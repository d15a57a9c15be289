package query

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	queryservice "github.com/createlo/assistant/backend/internal/service/query"
	"github.com/createlo/assistant/backend/internal/service/transcript"
	"github.com/createlo/assistant/backend/pkg/utils"
)

// Handler exposes the query orchestrator and transcript history over HTTP.
type Handler struct {
	querySvc *queryservice.Service
	store    transcript.Store
}

// New creates the query handler.
func New(querySvc *queryservice.Service, store transcript.Store) *Handler {
	return &Handler{
		querySvc: querySvc,
		store:    store,
	}
}

// RegisterRoutes registers the query endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/query", h.handleQuery)
	r.Get("/history/{sessionID}", h.handleHistory)
}

// handleQuery runs one orchestrated query round trip.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	if h.querySvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "assistant unavailable")
		return
	}

	var req queryservice.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.querySvc.Handle(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, queryservice.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, queryservice.ErrUpstream):
			status = http.StatusBadGateway
		case errors.Is(err, queryservice.ErrStorageUnavailable):
			status = http.StatusServiceUnavailable
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleHistory returns the stored transcript for a session, oldest first.
// Unknown sessions yield an empty list so the chat widget can always
// hydrate on refresh.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	turns, err := h.store.ReadAll(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "failed to load history")
		return
	}

	utils.RespondJSON(w, http.StatusOK, turns)
}
