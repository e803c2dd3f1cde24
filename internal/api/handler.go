// Package api exposes the engine over HTTP: enqueue and inspect
// thoughts, manage rules, and answer pending prompts.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/engine"
	"github.com/halgrim/noema/internal/rule"
	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(e *engine.Engine, logger *zap.Logger) *Handler {
	return &Handler{engine: e, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/status", h.status)

		r.Get("/thoughts", h.listThoughts)
		r.Post("/thoughts", h.createThought)
		r.Get("/thoughts/{id}", h.getThought)
		r.Delete("/thoughts/{id}", h.deleteThought)

		r.Get("/prompts", h.listPrompts)
		r.Post("/prompts/{id}/respond", h.respondPrompt)

		r.Get("/rules", h.listRules)
		r.Post("/rules", h.createRule)
		r.Get("/rules/{id}", h.getRule)
		r.Delete("/rules/{id}", h.deleteRule)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	counts := h.engine.Thoughts().CountByStatus()
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"thoughts":  h.engine.Thoughts().Len(),
		"rules":     h.engine.Rules().Len(),
		"by_status": byStatus,
		"active":    h.engine.ActiveIDs(),
	})
}

func (h *Handler) listThoughts(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" {
		writeJSON(w, http.StatusOK, h.engine.Thoughts().ByStatus(thought.Status(status)))
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Thoughts().All())
}

type createThoughtRequest struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

func (h *Handler) createThought(w http.ResponseWriter, r *http.Request) {
	var req createThoughtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}
	kind := thought.Kind(req.Kind)
	if req.Kind == "" {
		kind = thought.KindInput
	}
	t := h.engine.Enqueue(kind, term.ParseHeuristic(req.Content))
	writeJSON(w, http.StatusCreated, t)
}

// resolveThought finds a thought by exact id, falling back to unique
// prefix lookup.
func (h *Handler) resolveThought(id string) (*thought.Thought, bool) {
	if t, ok := h.engine.Thoughts().Get(id); ok {
		return t, true
	}
	return h.engine.Thoughts().FindByIDPrefix(id)
}

func (h *Handler) getThought(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := h.resolveThought(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "thought not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) deleteThought(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := h.resolveThought(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "thought not found"})
		return
	}
	h.engine.Thoughts().Delete(t.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": t.ID})
}

func (h *Handler) listPrompts(w http.ResponseWriter, r *http.Request) {
	var prompts []*thought.Thought
	for _, t := range h.engine.Thoughts().ByStatus(thought.StatusPending) {
		if t.Kind == thought.KindUserPrompt {
			prompts = append(prompts, t)
		}
	}
	writeJSON(w, http.StatusOK, prompts)
}

type respondRequest struct {
	Text string `json:"text"`
}

func (h *Handler) respondPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	if t, ok := h.resolveThought(id); ok {
		id = t.ID
	}
	err := h.engine.Respond(id, req.Text)
	switch {
	case errors.Is(err, engine.ErrPromptNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrNothingWaiting):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "resumed", "prompt": id})
	}
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Rules().All())
}

type createRuleRequest struct {
	Pattern     string `json:"pattern"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Pattern == "" || req.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pattern and action are required"})
		return
	}
	action := term.ParseHeuristic(req.Action)
	if _, ok := action.(term.Structure); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be a structure, e.g. generate(?X)"})
		return
	}

	newRule := rule.New(term.ParseHeuristic(req.Pattern), action)
	newRule.Description = req.Description
	newRule.Priority = req.Priority
	h.engine.Rules().Add(newRule)
	writeJSON(w, http.StatusCreated, newRule)
}

func (h *Handler) getRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, ok := h.engine.Rules().Get(id)
	if !ok {
		found, ok = h.engine.Rules().FindByIDPrefix(id)
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "rule not found"})
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, ok := h.engine.Rules().Get(id)
	if !ok {
		found, ok = h.engine.Rules().FindByIDPrefix(id)
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "rule not found"})
		return
	}
	h.engine.Rules().Delete(found.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": found.ID})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
