package ws

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	queryservice "github.com/createlo/assistant/backend/internal/service/query"
)

// Handler speaks the query contract over a websocket so the chat widget can
// hold one long-lived connection instead of polling. Each connection is
// assigned a session id when the client does not supply one, and every
// inbound frame runs through the same orchestrator as the REST endpoint.
type Handler struct {
	querySvc *queryservice.Service
	upgrader websocket.Upgrader
}

// New creates the websocket chat handler.
func New(querySvc *queryservice.Service) *Handler {
	return &Handler{
		querySvc: querySvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type wsError struct {
	Error     string `json:"error"`
	SessionID string `json:"session_id,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// A connection-scoped fallback session id keeps all frames from one
	// widget tab on the same transcript.
	connSession := uuid.NewString()

	for {
		var req queryservice.QueryRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read failed: %v", err)
			}
			return
		}

		if req.SessionID == "" {
			req.SessionID = connSession
		}

		resp, err := h.querySvc.Handle(r.Context(), req)
		if err != nil {
			msg := "assistant failed to answer"
			if errors.Is(err, queryservice.ErrInvalidInput) {
				msg = err.Error()
			}
			if writeErr := conn.WriteJSON(wsError{Error: msg, SessionID: req.SessionID}); writeErr != nil {
				log.Printf("[ws] write failed: %v", writeErr)
				return
			}
			continue
		}

		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("[ws] write failed: %v", err)
			return
		}
	}
}
