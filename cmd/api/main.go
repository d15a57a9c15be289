package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/createlo/assistant/backend/internal/config"
	"github.com/createlo/assistant/backend/internal/handler"
	"github.com/createlo/assistant/backend/internal/model/kb"
	"github.com/createlo/assistant/backend/internal/service/ai"
	"github.com/createlo/assistant/backend/internal/service/query"
	"github.com/createlo/assistant/backend/internal/service/transcript"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// The knowledge base is mandatory: the assistant must not answer
	// without grounding material, so a load failure is fatal.
	catalog := loadCatalog(cfg.Assistant.KBPath)
	log.Printf("knowledge base loaded with %d services", catalog.Len())

	store := transcript.NewMemoryStore()
	prompts := ai.NewPromptBuilder(catalog, cfg.Assistant.CompanyPhone)

	var aiSvc *ai.Service
	var querySvc *query.Service
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Fatalf("failed to create chat model: %v", err)
		}
		aiSvc, err = ai.NewService(ctx, chatModel, cfg.AI)
		if err != nil {
			log.Fatalf("failed to initialize generation service: %v", err)
		}
		querySvc = query.NewService(catalog, store, prompts, aiSvc)
		log.Println("generation service initialized successfully")
	} else {
		log.Println("warning: model credentials not configured, query endpoints will respond 503")
	}

	router := handler.NewRouter(catalog, store, prompts, querySvc, aiSvc, cfg.Assistant.CompanyPhone)

	startServer(ctx, cfg.Server, router)
}

// loadCatalog reads the KB file when configured and falls back to the
// seeded catalog otherwise.
func loadCatalog(path string) *kb.Catalog {
	if path == "" {
		log.Println("KB_PATH not set, using seeded service catalog")
		return kb.NewCatalog(kb.Seed())
	}

	catalog, err := kb.Load(path)
	if err != nil {
		log.Fatalf("failed to load knowledge base: %v", err)
	}
	return catalog
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Createlo assistant backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
