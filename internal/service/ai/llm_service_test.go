package ai_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/createlo/assistant/backend/internal/config"
	"github.com/createlo/assistant/backend/internal/service/ai"
)

// fakeChatModel stands in for the upstream generation service.
type fakeChatModel struct {
	reply  string
	chunks []string
	err    error
}

func (f *fakeChatModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if f.err != nil {
		return nil, f.err
	}
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, chunk := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(chunk, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func TestGenerateNonStreaming(t *testing.T) {
	ctx := context.Background()
	svc, err := ai.NewService(ctx, &fakeChatModel{reply: "hello from the model"}, config.AIConfig{StreamResponse: false})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	got, err := svc.Generate(ctx, "payload")
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if got != "hello from the model" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestGenerateStreamingConcatenatesChunks(t *testing.T) {
	ctx := context.Background()
	svc, err := ai.NewService(ctx, &fakeChatModel{chunks: []string{"Hel", "lo", " there"}}, config.AIConfig{StreamResponse: true})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	got, err := svc.Generate(ctx, "payload")
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if got != "Hello there" {
		t.Fatalf("expected concatenated chunks, got %q", got)
	}
}

func TestGenerateSurfacesUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	svc, err := ai.NewService(ctx, &fakeChatModel{err: fmt.Errorf("connection reset")}, config.AIConfig{StreamResponse: false})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	if _, err := svc.Generate(ctx, "payload"); err == nil {
		t.Fatal("expected error from failing upstream")
	}
}

func TestNewServiceRequiresModel(t *testing.T) {
	if _, err := ai.NewService(context.Background(), nil, config.AIConfig{}); err == nil {
		t.Fatal("expected error when chat model is missing")
	}
}
