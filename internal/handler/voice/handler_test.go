package voice

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/createlo/assistant/backend/internal/model/kb"
	"github.com/createlo/assistant/backend/internal/service/ai"
	queryservice "github.com/createlo/assistant/backend/internal/service/query"
	"github.com/createlo/assistant/backend/internal/service/transcript"
)

type stubGenerator struct {
	reply string
	err   error
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func setupVoiceRouter(gen queryservice.Generator) *chi.Mux {
	catalog := kb.NewCatalog([]kb.Service{
		{ServiceName: "SEO", Description: "We improve search rank.", Keywords: []string{"seo"}},
	})
	store := transcript.NewMemoryStore()
	prompts := ai.NewPromptBuilder(catalog, "+1-555-0100")
	svc := queryservice.NewService(catalog, store, prompts, gen)

	r := chi.NewRouter()
	New(svc, "+1-555-0100").RegisterRoutes(r)
	return r
}

func postVoice(r http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestFirstTurnGreetsAndGathers(t *testing.T) {
	r := setupVoiceRouter(&stubGenerator{reply: "unused"})

	resp := postVoice(r, url.Values{"CallSid": {"CA123"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	body := resp.Body.String()
	if !strings.Contains(body, "Thank you for calling Createlo") {
		t.Fatal("first turn missing greeting")
	}
	if !strings.Contains(body, "<Gather") {
		t.Fatal("first turn missing gather verb")
	}
	if !strings.Contains(body, "<Hangup") {
		t.Fatal("first turn missing hangup fallback")
	}
}

func TestSpokenTurnSpeaksReplyAndKeepsListening(t *testing.T) {
	r := setupVoiceRouter(&stubGenerator{reply: "SEO starts at 500 dollars a month."})

	resp := postVoice(r, url.Values{"CallSid": {"CA123"}, "SpeechResult": {"tell me about seo"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	body := resp.Body.String()
	if !strings.Contains(body, "SEO starts at 500 dollars a month.") {
		t.Fatal("reply not spoken back")
	}
	gatherIdx := strings.Index(body, "<Gather")
	sayIdx := strings.Index(body, "SEO starts")
	if gatherIdx == -1 || sayIdx == -1 || sayIdx > gatherIdx {
		t.Fatal("reply must be spoken before gathering again")
	}
}

func TestTransferSentinelRewrittenToHandoff(t *testing.T) {
	r := setupVoiceRouter(&stubGenerator{reply: ai.TransferSentinel})

	resp := postVoice(r, url.Values{"CallSid": {"CA123"}, "SpeechResult": {"get me a human"}})
	body := resp.Body.String()

	if strings.Contains(body, ai.TransferSentinel) {
		t.Fatal("raw transfer sentinel leaked to the caller")
	}
	if !strings.Contains(body, "+1-555-0100") {
		t.Fatal("hand-off message missing company phone")
	}
}

func TestBackendFailureSpeaksApology(t *testing.T) {
	r := setupVoiceRouter(&stubGenerator{err: fmt.Errorf("model offline")})

	resp := postVoice(r, url.Values{"CallSid": {"CA123"}, "SpeechResult": {"tell me about seo"}})
	body := resp.Body.String()

	if !strings.Contains(body, "technical issue") {
		t.Fatal("expected apology on backend failure")
	}
	if !strings.Contains(body, "<Hangup") {
		t.Fatal("expected hangup after apology")
	}
}

func TestMissingCallSidRejected(t *testing.T) {
	r := setupVoiceRouter(&stubGenerator{reply: "unused"})

	resp := postVoice(r, url.Values{"SpeechResult": {"hello"}})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
