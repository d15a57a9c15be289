package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/createlo/assistant/backend/internal/config"
)

// Service is the generation client: it forwards a composed payload to the
// configured chat model and returns the full generated text. The upstream
// may stream tokens; this layer always concatenates them before returning.
// No retry happens here; retry policy, if any, belongs to the caller.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the generation chain around the supplied chat model.
// The model is injected rather than constructed here so tests can
// substitute a fake.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// StreamingEnabled reports whether the upstream call streams internally.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Generate sends the payload upstream and returns the fully concatenated
// reply text. When streaming is enabled the chunks are drained and joined
// here; callers never see partial output.
func (s *Service) Generate(ctx context.Context, payload string) (string, error) {
	if s.StreamingEnabled() {
		stream, err := s.StreamPayload(ctx, payload)
		if err != nil {
			return "", err
		}
		defer stream.Close()

		response, err := drainStream(stream)
		if err != nil {
			return "", fmt.Errorf("failed to drain generation stream: %w", err)
		}
		return response.Content, nil
	}

	response, err := s.chain.Invoke(ctx, chainInput(payload))
	if err != nil {
		return "", fmt.Errorf("failed to run generation chain: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", fmt.Errorf("generation chain returned an empty response")
	}

	log.Printf("[ai] generated response, length=%d", len(response.Content))
	return response.Content, nil
}

// StreamPayload exposes the raw upstream stream for transports that relay
// deltas incrementally. The stream is lazy, finite, and not restartable.
func (s *Service) StreamPayload(ctx context.Context, payload string) (*schema.StreamReader[*schema.Message], error) {
	stream, err := s.chain.Stream(ctx, chainInput(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to stream generation chain output: %w", err)
	}
	return stream, nil
}

func chainInput(payload string) map[string]any {
	return map[string]any{"prompt": payload}
}

// drainStream collects every chunk and concatenates them into one message.
func drainStream(stream *schema.StreamReader[*schema.Message]) (*schema.Message, error) {
	chunks := make([]*schema.Message, 0, 8)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("generation stream produced no chunks")
	}

	return schema.ConcatMessages(chunks)
}
