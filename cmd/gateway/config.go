package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/hubenschmidt/interview-coach/internal/env"
)

type config struct {
	port              string
	appEnv            string
	logLevel          string
	databaseURL       string
	sessionSecret     string
	identitySecret    string
	identityIssuer    string
	voiceURL          string
	voiceToken        string
	voiceHealthURL    string
	voiceWorkflowID   string
	llmEngine         string
	llmPoolSize       int
	llmTimeout        time.Duration
	llmMaxTokens      int
	geminiAPIKey      string
	geminiModel       string
	openaiAPIKey      string
	openaiBaseURL     string
	openaiModel       string
	agentModel        string
	maxConcurrentCall int
	feedbackTimeout   time.Duration
	latestLimit       int
	kafkaBrokers      []string
	kafkaTopic        string
}

func loadConfig() config {
	return config{
		port:              env.Str("GATEWAY_PORT", "8000"),
		appEnv:            env.Str("APP_ENV", "development"),
		logLevel:          env.Str("LOG_LEVEL", "info"),
		databaseURL:       env.Str("DATABASE_URL", ""),
		sessionSecret:     env.Str("SESSION_SECRET", ""),
		identitySecret:    env.Str("IDENTITY_JWT_SECRET", ""),
		identityIssuer:    env.Str("IDENTITY_ISSUER", ""),
		voiceURL:          env.Str("VOICE_URL", "wss://api.vapi.ai/call/web"),
		voiceToken:        env.Str("VOICE_TOKEN", ""),
		voiceHealthURL:    env.Str("VOICE_HEALTH_URL", ""),
		voiceWorkflowID:   env.Str("VOICE_WORKFLOW_ID", ""),
		llmEngine:         env.Str("LLM_ENGINE", "gemini"),
		llmPoolSize:       env.Int("LLM_POOL_SIZE", 20),
		llmTimeout:        env.Duration("LLM_TIMEOUT", 60*time.Second),
		llmMaxTokens:      env.Int("LLM_MAX_TOKENS", 2048),
		geminiAPIKey:      env.Str("GEMINI_API_KEY", ""),
		geminiModel:       env.Str("GEMINI_MODEL", "gemini-2.0-flash-001"),
		openaiAPIKey:      env.Str("OPENAI_API_KEY", ""),
		openaiBaseURL:     env.Str("OPENAI_BASE_URL", ""),
		openaiModel:       env.Str("OPENAI_MODEL", "gpt-4o-mini"),
		agentModel:        env.Str("AGENT_MODEL", "gpt-4o-mini"),
		maxConcurrentCall: env.Int("MAX_CONCURRENT_CALLS", 100),
		feedbackTimeout:   env.Duration("FEEDBACK_TIMEOUT", 2*time.Minute),
		latestLimit:       env.Int("LATEST_INTERVIEWS_LIMIT", 20),
		kafkaBrokers:      env.List("KAFKA_BROKERS"),
		kafkaTopic:        env.Str("KAFKA_TOPIC", "interview-coach.events"),
	}
}

func (c config) production() bool {
	return c.appEnv == "production"
}

func (c config) slogLevel() slog.Level {
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	if lvl, ok := levels[strings.ToLower(c.logLevel)]; ok {
		return lvl
	}
	return slog.LevelInfo
}
