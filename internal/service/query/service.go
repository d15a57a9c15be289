package query

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/createlo/assistant/backend/internal/model/chat"
	"github.com/createlo/assistant/backend/internal/model/kb"
	"github.com/createlo/assistant/backend/internal/service/ai"
	"github.com/createlo/assistant/backend/internal/service/transcript"
)

var (
	// ErrInvalidInput rejects blank queries or session ids before any side
	// effect happens.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorageUnavailable marks transcript read failures that abort the
	// request.
	ErrStorageUnavailable = errors.New("transcript store unavailable")
	// ErrUpstream marks generation service failures; the wrapped detail
	// carries the upstream reason for logging.
	ErrUpstream = errors.New("generation service failure")
)

// SourceGeneralInquiry is echoed as the response source when no catalog
// service matched the query.
const SourceGeneralInquiry = "general_inquiry"

// QueryRequest is the transport-independent inbound shape.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// QueryResponse carries the generated reply, the service that grounded it
// (or the general-inquiry sentinel), and the echoed session id.
type QueryResponse struct {
	Response  string `json:"response"`
	Source    string `json:"source"`
	SessionID string `json:"session_id"`
}

// Generator produces the full reply text for a composed payload.
type Generator interface {
	Generate(ctx context.Context, payload string) (string, error)
}

// Service orchestrates one query end to end: load transcript, resolve the
// topic, compose the prompt, call generation, persist both sides of the
// turn, respond. It holds no per-session state of its own; all cross-turn
// state is the transcript, replayed each call. Concurrent requests for the
// same session are not serialized here; the store's append timestamps alone
// establish turn order.
type Service struct {
	catalog   *kb.Catalog
	store     transcript.Store
	prompts   *ai.PromptBuilder
	generator Generator
}

// NewService wires the orchestrator with its constructed-once dependencies.
func NewService(catalog *kb.Catalog, store transcript.Store, prompts *ai.PromptBuilder, generator Generator) *Service {
	return &Service{
		catalog:   catalog,
		store:     store,
		prompts:   prompts,
		generator: generator,
	}
}

// Handle processes a single query. Transcript writes happen only after a
// successful generation, so every persisted assistant turn corresponds to a
// real generated reply; a write failure after generation is logged and the
// reply is still returned.
func (s *Service) Handle(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	query := strings.TrimSpace(req.Query)
	sessionID := strings.TrimSpace(req.SessionID)
	if query == "" {
		return QueryResponse{}, fmt.Errorf("%w: query must not be empty", ErrInvalidInput)
	}
	if sessionID == "" {
		return QueryResponse{}, fmt.Errorf("%w: session_id must not be empty", ErrInvalidInput)
	}

	turns, err := s.store.ReadAll(ctx, sessionID)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	matched := s.catalog.Resolve(query)

	payload, err := s.prompts.Compose(query, matched, turns)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	reply, err := s.generator.Generate(ctx, payload)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.persistTurns(ctx, sessionID, query, reply)

	source := SourceGeneralInquiry
	if matched != nil {
		source = matched.ServiceName
	}

	return QueryResponse{
		Response:  reply,
		Source:    source,
		SessionID: sessionID,
	}, nil
}

// persistTurns appends the client turn then the assistant turn. Durability
// is best effort: failures are logged and swallowed so the caller still
// receives the reply. The assistant append is skipped when the client
// append failed, keeping client-before-assistant pairing intact.
func (s *Service) persistTurns(ctx context.Context, sessionID, query, reply string) {
	if _, err := s.store.Append(ctx, sessionID, chat.RoleClient, query); err != nil {
		log.Printf("[query] failed to persist client turn for session=%s: %v", sessionID, err)
		return
	}
	if _, err := s.store.Append(ctx, sessionID, chat.RoleAssistant, reply); err != nil {
		log.Printf("[query] failed to persist assistant turn for session=%s: %v", sessionID, err)
	}
}
