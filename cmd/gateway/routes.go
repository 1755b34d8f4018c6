package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hubenschmidt/interview-coach/internal/auth"
	"github.com/hubenschmidt/interview-coach/internal/dashboard"
	"github.com/hubenschmidt/interview-coach/internal/feedback"
	"github.com/hubenschmidt/interview-coach/internal/generate"
	"github.com/hubenschmidt/interview-coach/internal/health"
	"github.com/hubenschmidt/interview-coach/internal/store"
)

const (
	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 1 << 20

	msgGenerateFailed = "Failed to generate the interview."
)

type deps struct {
	auth      *auth.Service
	store     store.Store
	feedback  *feedback.Synthesizer
	generator *generate.Generator
	dashboard *dashboard.Builder
	health    *health.Registry
	wsHandler http.Handler
}

// newRouter wires all HTTP endpoints.
func newRouter(d deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Get("/ready", d.handleReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health/deps", d.handleDeps)
	r.Handle("/ws/interview", d.wsHandler)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/sign-up", d.handleSignUp)
		r.Post("/sign-in", d.handleSignIn)
		r.Post("/sign-out", d.handleSignOut)
		r.Get("/me", d.handleMe)
	})

	// Called by the voice workflow, which carries no browser session.
	r.Post("/api/interviews/generate", d.handleGenerate)
	r.Get("/api/dashboard", d.handleDashboard)

	r.Group(func(r chi.Router) {
		r.Use(d.auth.Require)
		r.Get("/api/interviews/{id}", d.handleInterview)
		r.Get("/api/interviews/{id}/feedback", d.handleFeedback)
		r.Get("/api/calls/{id}", d.handleCall)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReady answers 503 while any probed dependency is unhealthy.
func (d deps) handleReady(w http.ResponseWriter, r *http.Request) {
	infos := d.health.StatusAll(r.Context())
	status := http.StatusOK
	if !health.Healthy(infos) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, infos)
}

func (d deps) handleDeps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.health.StatusAll(r.Context()))
}

func (d deps) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var p auth.SignUpParams
	if !decodeBody(w, r, &p) {
		return
	}
	res := d.auth.SignUp(r.Context(), p)
	writeJSON(w, resultStatus(res), res)
}

func (d deps) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var p auth.SignInParams
	if !decodeBody(w, r, &p) {
		return
	}
	res, cookie := d.auth.SignIn(r.Context(), p)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	writeJSON(w, resultStatus(res), res)
}

func (d deps) handleSignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, d.auth.SignOut())
	w.WriteHeader(http.StatusNoContent)
}

func (d deps) handleMe(w http.ResponseWriter, r *http.Request) {
	user := d.auth.CurrentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": user != nil,
		"user":          user,
	})
}

func (d deps) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := d.dashboard.Build(r.Context(), d.auth.CurrentUser(r))
	if err != nil {
		slog.Error("build dashboard", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (d deps) handleInterview(w http.ResponseWriter, r *http.Request) {
	iv, err := d.store.GetInterview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "get interview", err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (d deps) handleFeedback(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	fb, err := d.feedback.GetByInterview(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeStoreError(w, "get feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (d deps) handleCall(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	sess, evs, err := d.store.GetCallSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "get call session", err)
		return
	}
	if sess.UserID != user.ID {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	limit := queryInt(r, "limit", len(evs))
	if limit >= 0 && limit < len(evs) {
		evs = evs[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess, "events": evs})
}

func (d deps) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var p generate.Params
	if !decodeBody(w, r, &p) {
		return
	}
	iv, err := d.generator.Generate(r.Context(), p)
	if err != nil {
		slog.Error("generate interview", "role", p.Role, "user_id", p.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": msgGenerateFailed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": iv.ID})
}

func resultStatus(res auth.Result) int {
	if res.Success {
		return http.StatusOK
	}
	if len(res.Fields) > 0 {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	slog.Error(op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
