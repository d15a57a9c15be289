package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/createlo/assistant/backend/internal/model/chat"
	"github.com/createlo/assistant/backend/internal/model/kb"
	aiService "github.com/createlo/assistant/backend/internal/service/ai"
	queryservice "github.com/createlo/assistant/backend/internal/service/query"
	"github.com/createlo/assistant/backend/internal/service/transcript"
	"github.com/createlo/assistant/backend/pkg/utils"
)

// Handler relays generated replies incrementally via Server-Sent Events for
// the chat widget. It mirrors the orchestrator's flow, with the same
// invariant: turns are persisted only after the upstream stream completed
// and concatenated successfully.
type Handler struct {
	aiSvc   *aiService.Service
	store   transcript.Store
	catalog *kb.Catalog
	prompts *aiService.PromptBuilder
}

// New creates a stream handler.
func New(aiSvc *aiService.Service, store transcript.Store, catalog *kb.Catalog, prompts *aiService.PromptBuilder) *Handler {
	return &Handler{
		aiSvc:   aiSvc,
		store:   store,
		catalog: catalog,
		prompts: prompts,
	}
}

// StreamResponse represents one streaming event payload.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	Source    string `json:"source,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest streams the reply for one query over SSE.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, message string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	if strings.TrimSpace(sessionID) == "" {
		h.sendSSEError(w, flusher, "sessionID is required")
		return fmt.Errorf("sessionID is required")
	}

	turns, err := h.store.ReadAll(ctx, sessionID)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("failed to load transcript: %v", err))
		return err
	}

	matched := h.catalog.Resolve(message)
	source := queryservice.SourceGeneralInquiry
	if matched != nil {
		source = matched.ServiceName
	}

	payload, err := h.prompts.Compose(message, matched, turns)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("failed to compose prompt: %v", err))
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
		Source:    source,
	})

	response, err := h.relayStream(ctx, w, flusher, sessionID, payload)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("generation failed: %v", err))
		return err
	}

	// Persist client turn then assistant turn, only now that the full
	// reply exists. Failures are logged; the client already has the text.
	if _, err := h.store.Append(ctx, sessionID, chat.RoleClient, message); err != nil {
		log.Printf("[stream] failed to persist client turn for session=%s: %v", sessionID, err)
	} else if _, err := h.store.Append(ctx, sessionID, chat.RoleAssistant, response.Content); err != nil {
		log.Printf("[stream] failed to persist assistant turn for session=%s: %v", sessionID, err)
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Source:    source,
		Content:   response.Content,
	})

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed response for session=%s, source=%s", sessionID, source)
	return nil
}

// relayStream forwards upstream deltas to the client and returns the
// concatenated message.
func (h *Handler) relayStream(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID, payload string) (*schema.Message, error) {
	stream, err := h.aiSvc.StreamPayload(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   chunk.Content,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("generation stream produced no chunks")
	}

	return schema.ConcatMessages(chunks)
}

// sendSSE sends a Server-Sent Event.
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

// sendSSEError sends an error via Server-Sent Events.
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
