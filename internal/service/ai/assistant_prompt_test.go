package ai_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/createlo/assistant/backend/internal/model/chat"
	"github.com/createlo/assistant/backend/internal/model/kb"
	"github.com/createlo/assistant/backend/internal/service/ai"
)

func testCatalog() *kb.Catalog {
	return kb.NewCatalog([]kb.Service{
		{ServiceName: "SEO", Description: "We improve search rank.", Keywords: []string{"seo", "ranking"}},
		{ServiceName: "Branding", Description: "We craft logos.", Keywords: []string{"logo"}},
	})
}

func TestComposeWithMatchedService(t *testing.T) {
	catalog := testCatalog()
	builder := ai.NewPromptBuilder(catalog, "+1-555-0100")
	matched := catalog.Resolve("help with seo")

	payload, err := builder.Compose("help with seo", matched, nil)
	if err != nil {
		t.Fatalf("Compose err: %v", err)
	}

	if !strings.Contains(payload, "Service: SEO") {
		t.Fatal("payload missing matched service name")
	}
	if !strings.Contains(payload, "We improve search rank.") {
		t.Fatal("payload missing service description as grounding text")
	}
	if !strings.Contains(payload, "client: help with seo") {
		t.Fatal("payload missing the new client query")
	}
	if !strings.Contains(payload, "+1-555-0100") {
		t.Fatal("payload missing company phone in callback policy")
	}
}

func TestComposeGeneralInquiryListsEveryServiceOnce(t *testing.T) {
	catalog := testCatalog()
	builder := ai.NewPromptBuilder(catalog, "")

	payload, err := builder.Compose("what is the weather", nil, nil)
	if err != nil {
		t.Fatalf("Compose err: %v", err)
	}

	for _, name := range []string{"SEO", "Branding"} {
		if got := strings.Count(payload, name); got != 1 {
			t.Fatalf("expected %q to appear exactly once, got %d", name, got)
		}
	}
	if !strings.Contains(payload, "Present the services below") {
		t.Fatal("payload missing the present-options instruction")
	}
}

func TestComposeEmptyQueryFails(t *testing.T) {
	builder := ai.NewPromptBuilder(testCatalog(), "")

	if _, err := builder.Compose("   ", nil, nil); !errors.Is(err, ai.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestComposeSerializesTranscriptOldestFirst(t *testing.T) {
	builder := ai.NewPromptBuilder(testCatalog(), "")
	now := time.Now().UTC()
	transcript := []chat.Turn{
		{Role: chat.RoleClient, Content: "first question", OccurredAt: now},
		{Role: chat.RoleAssistant, Content: "first answer", OccurredAt: now.Add(time.Second)},
		{Role: chat.RoleClient, Content: "second question", OccurredAt: now.Add(2 * time.Second)},
	}

	payload, err := builder.Compose("third question", nil, transcript)
	if err != nil {
		t.Fatalf("Compose err: %v", err)
	}

	first := strings.Index(payload, "client: first question")
	second := strings.Index(payload, "assistant: first answer")
	third := strings.Index(payload, "client: second question")
	if first == -1 || second == -1 || third == -1 {
		t.Fatal("payload missing replayed transcript lines")
	}
	if !(first < second && second < third) {
		t.Fatal("transcript lines not serialized oldest first")
	}
}

func TestComposeEmptyTranscriptPlaceholder(t *testing.T) {
	builder := ai.NewPromptBuilder(testCatalog(), "")

	payload, err := builder.Compose("hello", nil, nil)
	if err != nil {
		t.Fatalf("Compose err: %v", err)
	}
	if !strings.Contains(payload, "(no previous messages)") {
		t.Fatal("expected placeholder for empty transcript")
	}
}

func TestComposePolicyCarriesCallbackSteps(t *testing.T) {
	builder := ai.NewPromptBuilder(testCatalog(), "+1-555-0100")

	payload, err := builder.Compose("call me please", nil, nil)
	if err != nil {
		t.Fatalf("Compose err: %v", err)
	}

	for _, fragment := range []string{
		"call them back",
		"repeat the number back",
		"callback request has been logged",
		ai.TransferSentinel,
	} {
		if !strings.Contains(payload, fragment) {
			t.Fatalf("policy missing fragment %q", fragment)
		}
	}
}
