package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	queryHandler "github.com/createlo/assistant/backend/internal/handler/query"
	"github.com/createlo/assistant/backend/internal/handler/stream"
	"github.com/createlo/assistant/backend/internal/handler/voice"
	"github.com/createlo/assistant/backend/internal/handler/ws"
	middlewarePkg "github.com/createlo/assistant/backend/internal/middleware"
	"github.com/createlo/assistant/backend/internal/model/kb"
	aiService "github.com/createlo/assistant/backend/internal/service/ai"
	queryservice "github.com/createlo/assistant/backend/internal/service/query"
	"github.com/createlo/assistant/backend/internal/service/transcript"
	"github.com/createlo/assistant/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. querySvc and aiSvc may be
// nil when model credentials are missing; the affected endpoints then
// respond 503 while history stays available.
func NewRouter(catalog *kb.Catalog, store transcript.Store, prompts *aiService.PromptBuilder, querySvc *queryservice.Service, aiSvc *aiService.Service, companyPhone string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status": "Createlo Client Assistant API is running",
		})
	})

	qh := queryHandler.New(querySvc, store)
	voiceHandler := voice.New(querySvc, companyPhone)

	var streamHandler *stream.Handler
	if aiSvc != nil {
		streamHandler = stream.New(aiSvc, store, catalog, prompts)
	}

	r.Route("/api", func(api chi.Router) {
		qh.RegisterRoutes(api)
		voiceHandler.RegisterRoutes(api)

		if querySvc != nil {
			wsHandler := ws.New(querySvc)
			wsHandler.RegisterRoutes(api)
		}

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			message := r.URL.Query().Get("message")

			if streamHandler == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
				return
			}
			if message == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, message); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
