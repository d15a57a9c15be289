package voice

import (
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/createlo/assistant/backend/internal/service/ai"
	queryservice "github.com/createlo/assistant/backend/internal/service/query"
)

const (
	greetingLine = "Thank you for calling Createlo. You are speaking with the official AI assistant. How may I assist you today?"
	silenceLine  = "I didn't hear anything. If you need no further assistance, thank you for your call. Goodbye."
	failureLine  = "I apologize, I'm having a technical issue connecting to our main system. Please try again later."
)

// Handler adapts the telephony webhook to the query orchestrator. The
// caller's CallSid doubles as the session id, so the whole call shares one
// transcript.
type Handler struct {
	querySvc     *queryservice.Service
	companyPhone string
}

// New creates the voice webhook handler.
func New(querySvc *queryservice.Service, companyPhone string) *Handler {
	return &Handler{
		querySvc:     querySvc,
		companyPhone: companyPhone,
	}
}

// RegisterRoutes registers the webhook endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/voice", h.handleCall)
}

// handleCall drives the conversational call flow: greet on the first turn,
// otherwise run the spoken utterance through the orchestrator and keep
// gathering speech until the caller goes silent.
func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	callSid := strings.TrimSpace(r.FormValue("CallSid"))
	if callSid == "" {
		http.Error(w, "CallSid is required", http.StatusBadRequest)
		return
	}

	speech := strings.TrimSpace(r.FormValue("SpeechResult"))
	if speech == "" {
		// First turn of the call: the caller has not spoken yet.
		writeTwiML(w, twimlResponse{Verbs: []any{
			gatherVerb{Input: "speech", Action: "/api/voice", Method: "POST", Timeout: 5, Say: &sayVerb{Text: greetingLine}},
			sayVerb{Text: "I'm sorry, I didn't hear anything. Please call back if you need assistance. Goodbye."},
			hangupVerb{},
		}})
		return
	}

	if h.querySvc == nil {
		writeTwiML(w, twimlResponse{Verbs: []any{sayVerb{Text: failureLine}, hangupVerb{}}})
		return
	}

	resp, err := h.querySvc.Handle(r.Context(), queryservice.QueryRequest{
		Query:     speech,
		SessionID: callSid,
	})
	if err != nil {
		log.Printf("[voice] query failed for call=%s: %v", callSid, err)
		writeTwiML(w, twimlResponse{Verbs: []any{sayVerb{Text: failureLine}, hangupVerb{}}})
		return
	}

	answer := strings.TrimSpace(resp.Response)
	if strings.Contains(answer, ai.TransferSentinel) {
		answer = h.transferLine()
	}

	writeTwiML(w, twimlResponse{Verbs: []any{
		sayVerb{Text: answer},
		gatherVerb{Input: "speech", Action: "/api/voice", Method: "POST", Timeout: 7},
		sayVerb{Text: silenceLine},
		hangupVerb{},
	}})
}

// transferLine replaces the raw transfer sentinel with a spoken hand-off.
func (h *Handler) transferLine() string {
	phone := h.companyPhone
	if phone == "" {
		phone = "our published phone number"
	}
	return fmt.Sprintf("Great! The best next step is to speak with a Createlo team member directly. Please call us at %s, or stay on the line and describe what you need.", phone)
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

type sayVerb struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type gatherVerb struct {
	XMLName xml.Name `xml:"Gather"`
	Input   string   `xml:"input,attr"`
	Action  string   `xml:"action,attr"`
	Method  string   `xml:"method,attr"`
	Timeout int      `xml:"timeout,attr"`
	Say     *sayVerb
}

type hangupVerb struct {
	XMLName xml.Name `xml:"Hangup"`
}

func writeTwiML(w http.ResponseWriter, resp twimlResponse) {
	body, err := xml.Marshal(resp)
	if err != nil {
		log.Printf("[voice] failed to marshal twiml: %v", err)
		http.Error(w, "failed to render response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprint(w, xml.Header)
	if _, err := w.Write(body); err != nil {
		log.Printf("[voice] failed to write twiml: %v", err)
	}
}
