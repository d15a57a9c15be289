package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/createlo/assistant/backend/internal/model/chat"
	"github.com/createlo/assistant/backend/internal/model/kb"
)

// ErrEmptyQuery is returned when a prompt is requested for a blank query.
var ErrEmptyQuery = errors.New("query must not be empty")

// TransferSentinel is the exact reply the model is instructed to emit when
// the client insists on speaking with a person immediately. Transport
// adapters rewrite it into a hand-off message.
const TransferSentinel = "ACTION: TRANSFER_CALL"

const defaultHeader = `You are the official AI assistant for Createlo, a digital marketing agency. Answer as a courteous member of the Createlo team, keep replies concise enough to read aloud, and never invent services Createlo does not offer.`

// The callback flow below is deliberately carried as instruction text only.
// No code in this repository parses phone numbers or tracks confirmation
// state; the full transcript is replayed to the model each turn and the
// model works out which step of the flow the conversation is in.
const defaultCallbackPolicy = `When the client asks for a call or a consultation, offer them a choice: a Createlo team member can call them back, or they can call us directly at %s.
If the client provides a phone number, your next reply must repeat the number back to them and ask them to confirm it is correct.
If the client confirms the number, your next reply must acknowledge that a callback request has been logged and a team member will reach out shortly.
If the client insists on being transferred to a person immediately, reply with exactly: ` + TransferSentinel

// PromptBuilder assembles the single instruction payload sent to the
// generation service: identity header, grounding text from the catalog,
// the callback-scheduling policy, the replayed transcript, and the new
// query. Header and Policy are plain templates so deployments can reword
// the policy without code changes.
type PromptBuilder struct {
	catalog *kb.Catalog
	Header  string
	Policy  string
}

// NewPromptBuilder returns a builder with the default Createlo templates.
// companyPhone is interpolated into the callback policy.
func NewPromptBuilder(catalog *kb.Catalog, companyPhone string) *PromptBuilder {
	if companyPhone == "" {
		companyPhone = "our published phone number"
	}
	return &PromptBuilder{
		catalog: catalog,
		Header:  defaultHeader,
		Policy:  fmt.Sprintf(defaultCallbackPolicy, companyPhone),
	}
}

// Compose builds the full generation payload. matched may be nil, in which
// case the grounding section lists the whole catalog and instructs the
// assistant to present the options.
func (b *PromptBuilder) Compose(query string, matched *kb.Service, transcript []chat.Turn) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", ErrEmptyQuery
	}

	var builder strings.Builder
	builder.WriteString(b.Header)
	builder.WriteString("\n\n")
	builder.WriteString(b.groundingText(matched))
	builder.WriteString("\n\n")
	builder.WriteString(b.Policy)
	builder.WriteString("\n\nConversation so far:\n")
	builder.WriteString(formatTranscript(transcript))
	builder.WriteString("\n\n")
	builder.WriteString(chat.RoleClient)
	builder.WriteString(": ")
	builder.WriteString(trimmed)
	builder.WriteString("\n\nReply to the client's latest message.")

	return builder.String(), nil
}

// groundingText injects either the matched service description or a catalog
// listing for general inquiries.
func (b *PromptBuilder) groundingText(matched *kb.Service) string {
	if matched != nil {
		return fmt.Sprintf("The client is asking about the following Createlo service.\nService: %s\nDescription: %s",
			matched.ServiceName, matched.Description)
	}

	var builder strings.Builder
	builder.WriteString("No single Createlo service matches this inquiry. Present the services below and invite the client to pick the one closest to their need:\n")
	for _, svc := range b.catalog.List() {
		builder.WriteString("- ")
		builder.WriteString(svc.ServiceName)
		builder.WriteString("\n")
	}
	return strings.TrimRight(builder.String(), "\n")
}

// formatTranscript serializes turns oldest first as "role: content" lines.
func formatTranscript(transcript []chat.Turn) string {
	if len(transcript) == 0 {
		return "(no previous messages)"
	}

	var builder strings.Builder
	for i, turn := range transcript {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		builder.WriteString(turn.Role)
		builder.WriteString(": ")
		builder.WriteString(content)
		if i < len(transcript)-1 {
			builder.WriteString("\n")
		}
	}
	if builder.Len() == 0 {
		return "(no previous messages)"
	}
	return builder.String()
}
