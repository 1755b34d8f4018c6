package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hubenschmidt/interview-coach/internal/auth"
	"github.com/hubenschmidt/interview-coach/internal/dashboard"
	"github.com/hubenschmidt/interview-coach/internal/events"
	"github.com/hubenschmidt/interview-coach/internal/feedback"
	"github.com/hubenschmidt/interview-coach/internal/generate"
	"github.com/hubenschmidt/interview-coach/internal/health"
	"github.com/hubenschmidt/interview-coach/internal/llm"
	"github.com/hubenschmidt/interview-coach/internal/store"
	"github.com/hubenschmidt/interview-coach/internal/voice"
	"github.com/hubenschmidt/interview-coach/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	cfg := loadConfig()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.slogLevel()})))

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	docs, err := openStore(initCtx, cfg.databaseURL)
	initCancel()
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer docs.Close()

	llmRouter := newLLMRouter(cfg)

	publisher := events.New(events.Config{Brokers: cfg.kafkaBrokers, Topic: cfg.kafkaTopic})
	defer publisher.Close()

	synth := feedback.New(feedback.Config{
		Store:  docs,
		LLM:    llmRouter,
		Events: publisher,
		Engine: cfg.llmEngine,
	})
	gen := generate.New(generate.Config{
		Store:  docs,
		LLM:    llmRouter,
		Events: publisher,
		Engine: cfg.llmEngine,
	})

	if cfg.sessionSecret == "" {
		slog.Warn("SESSION_SECRET is empty, sessions are signed with an empty key")
	}
	authSvc := auth.NewService(
		docs,
		auth.NewJWTVerifier(cfg.identitySecret, cfg.identityIssuer),
		auth.NewSessions(cfg.sessionSecret, cfg.production()),
	)

	depRegistry := health.NewRegistry(map[string]health.Dependency{
		"store": {Category: "store", Probe: docs.Ping},
		"voice": {Category: "voice", HealthURL: cfg.voiceHealthURL},
		"llm": {Category: "llm", Probe: func(context.Context) error {
			if !llmRouter.Has(cfg.llmEngine) {
				return fmt.Errorf("llm engine %q not configured", cfg.llmEngine)
			}
			return nil
		}},
	})

	handler := ws.NewHandler(ws.HandlerConfig{
		Auth:        authSvc,
		Store:       docs,
		Synthesizer: synth,
		NewVoice: func() voice.Client {
			return voice.NewWSClient(cfg.voiceURL, cfg.voiceToken)
		},
		Interviewer:     voice.DefaultInterviewer(),
		WorkflowID:      cfg.voiceWorkflowID,
		MaxConcurrent:   cfg.maxConcurrentCall,
		ReactionTimeout: cfg.feedbackTimeout,
	})

	router := newRouter(deps{
		auth:      authSvc,
		store:     docs,
		feedback:  synth,
		generator: gen,
		dashboard: dashboard.NewBuilder(docs, cfg.latestLimit),
		health:    depRegistry,
		wsHandler: handler,
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	slog.Info("gateway starting",
		"addr", addr,
		"env", cfg.appEnv,
		"llm_engines", llmRouter.Engines(),
		"max_concurrent", cfg.maxConcurrentCall,
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway stopped")
}

func openStore(ctx context.Context, databaseURL string) (store.Store, error) {
	if databaseURL == "" {
		slog.Warn("DATABASE_URL is empty, using in-memory store")
		return store.NewMemory(), nil
	}
	pg, err := store.OpenPostgres(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("postgres store ready")
	return pg, nil
}

// newLLMRouter registers every backend with credentials. The configured
// engine is the fallback for unknown names.
func newLLMRouter(cfg config) *llm.StructuredRouter {
	httpClient := llm.NewPooledHTTPClient(cfg.llmPoolSize, cfg.llmTimeout)
	backends := map[string]llm.StructuredClient{}

	if cfg.geminiAPIKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		gemini, err := llm.NewGeminiClient(ctx, cfg.geminiAPIKey, cfg.geminiModel, cfg.llmMaxTokens, httpClient)
		cancel()
		if err != nil {
			slog.Warn("gemini backend disabled", "error", err)
		} else {
			backends["gemini"] = gemini
		}
	}
	if cfg.openaiAPIKey != "" {
		backends["openai"] = llm.NewOpenAIClient(cfg.openaiAPIKey, cfg.openaiBaseURL, cfg.openaiModel, cfg.llmMaxTokens, httpClient)
		backends["agent"] = llm.NewOpenAIAgentClient(cfg.openaiAPIKey, cfg.openaiBaseURL, cfg.agentModel, cfg.llmMaxTokens)
	}
	if len(backends) == 0 {
		slog.Warn("no llm backend configured, feedback and generation will fail")
	}
	return llm.NewStructuredRouter(backends, cfg.llmEngine)
}
