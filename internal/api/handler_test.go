package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/engine"
	"github.com/halgrim/noema/internal/memory"
	"github.com/halgrim/noema/internal/store"
	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
	"github.com/halgrim/noema/internal/tool"
)

func newTestHandler(t *testing.T) (*Handler, *engine.Engine) {
	t.Helper()
	logger := zap.NewNop()
	thoughts := store.NewThoughts(logger)
	rules := store.NewRules(logger)
	registry := tool.NewRegistry()
	tool.RegisterBuiltins(registry)
	e := engine.New(engine.Config{Seed: 1}, thoughts, rules, registry, nil,
		memory.NewVolatileStore(nil), nil, logger)
	return NewHandler(e, logger), e
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.Router(), http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateAndGetThought(t *testing.T) {
	h, e := newTestHandler(t)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/thoughts", map[string]string{
		"kind":    "goal",
		"content": "acquire(milk)",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created thought.Thought
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created thought: %v", err)
	}
	if created.Kind != thought.KindGoal {
		t.Errorf("kind = %v, want goal", created.Kind)
	}
	want := term.Structure{Name: "acquire", Args: []term.Term{term.Atom{Name: "milk"}}}
	if !term.Equal(created.Content, want) {
		t.Errorf("content = %v, want %v", created.Content, want)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/thoughts/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Unique prefixes resolve too.
	rec = doJSON(t, router, http.MethodGet, "/api/thoughts/"+created.ID[:8], nil)
	if rec.Code != http.StatusOK {
		t.Errorf("prefix get status = %d, want 200", rec.Code)
	}

	if got, _ := e.Thoughts().Get(created.ID); got.Status != thought.StatusPending {
		t.Errorf("created thought status = %v, want pending", got.Status)
	}
}

func TestCreateThoughtDefaultsToInput(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.Router(), http.MethodPost, "/api/thoughts", map[string]string{
		"content": "buy milk",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var created thought.Thought
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Kind != thought.KindInput {
		t.Errorf("kind = %v, want input", created.Kind)
	}
}

func TestCreateThoughtRejectsEmptyContent(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.Router(), http.MethodPost, "/api/thoughts", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteThought(t *testing.T) {
	h, e := newTestHandler(t)
	created := e.Enqueue(thought.KindInput, term.Atom{Name: "x"})

	rec := doJSON(t, h.Router(), http.MethodDelete, "/api/thoughts/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, ok := e.Thoughts().Get(created.ID); ok {
		t.Error("thought still present after delete")
	}

	rec = doJSON(t, h.Router(), http.MethodDelete, "/api/thoughts/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestPromptListingAndRespond(t *testing.T) {
	h, e := newTestHandler(t)
	router := h.Router()

	// Build a suspended thought and its prompt the way the prompt tool does.
	trigger := e.Enqueue(thought.KindQuery, term.Atom{Name: "ambiguous"})
	prompt := thought.NewChild(trigger, thought.KindUserPrompt, term.Atom{Name: "which one?"})
	e.Thoughts().Add(prompt)
	suspended := trigger.Clone()
	suspended.Status = thought.StatusWaiting
	suspended.Metadata.WaitingFor = prompt.ID
	e.Thoughts().Update(suspended)

	rec := doJSON(t, router, http.MethodGet, "/api/prompts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list prompts status = %d", rec.Code)
	}
	var prompts []*thought.Thought
	if err := json.Unmarshal(rec.Body.Bytes(), &prompts); err != nil {
		t.Fatalf("decode prompts: %v", err)
	}
	if len(prompts) != 1 || prompts[0].ID != prompt.ID {
		t.Fatalf("prompts = %v, want the one pending prompt", prompts)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/prompts/"+prompt.ID+"/respond",
		map[string]string{"text": "the blue one"})
	if rec.Code != http.StatusOK {
		t.Fatalf("respond status = %d: %s", rec.Code, rec.Body.String())
	}

	resumed, _ := e.Thoughts().Get(trigger.ID)
	if resumed.Status != thought.StatusPending {
		t.Errorf("trigger status = %v, want pending", resumed.Status)
	}

	// Second answer must be rejected.
	rec = doJSON(t, router, http.MethodPost, "/api/prompts/"+prompt.ID+"/respond",
		map[string]string{"text": "again"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("double respond status = %d, want 404", rec.Code)
	}
}

func TestRespondUnknownPromptIs404(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.Router(), http.MethodPost, "/api/prompts/nope/respond",
		map[string]string{"text": "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRuleLifecycle(t *testing.T) {
	h, e := newTestHandler(t)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/rules", map[string]interface{}{
		"pattern":     "acquire(?X)",
		"action":      "generate(?X)",
		"description": "plan acquisitions",
		"priority":    2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create rule status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID       string `json:"id"`
		Priority int    `json:"priority"`
	}
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Priority != 2 {
		t.Errorf("priority = %d, want 2", created.Priority)
	}
	if _, ok := e.Rules().Get(created.ID); !ok {
		t.Fatal("rule not stored")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/rules/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get rule status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/rules/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete rule status = %d", rec.Code)
	}
	if _, ok := e.Rules().Get(created.ID); ok {
		t.Error("rule still present after delete")
	}
}

func TestCreateRuleRejectsNonStructureAction(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.Router(), http.MethodPost, "/api/rules", map[string]string{
		"pattern": "acquire(?X)",
		"action":  "just an atom",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h, e := newTestHandler(t)
	e.Enqueue(thought.KindInput, term.Atom{Name: "a"})
	e.Enqueue(thought.KindInput, term.Atom{Name: "b"})

	rec := doJSON(t, h.Router(), http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Thoughts int            `json:"thoughts"`
		ByStatus map[string]int `json:"by_status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body.Thoughts != 2 {
		t.Errorf("thoughts = %d, want 2", body.Thoughts)
	}
	if body.ByStatus["pending"] != 2 {
		t.Errorf("pending = %d, want 2", body.ByStatus["pending"])
	}
}
