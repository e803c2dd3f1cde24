package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/events"
	"github.com/halgrim/noema/internal/lineage"
	"github.com/halgrim/noema/internal/persist"
	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

func TestMain(m *testing.M) {
	if os.Getenv("NOEMA_INTEGRATION") == "" {
		// Tests will skip individually.
		os.Exit(m.Run())
	}

	ctx := context.Background()
	testLogger, _ = zap.NewDevelopment()

	pgDSN, pgCleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres: %v\n", err)
		os.Exit(1)
	}
	defer pgCleanup()
	testPgDSN = pgDSN

	redisURL, redisCleanup, err := startRedis(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer redisCleanup()
	testRedisURL = redisURL

	neo4jURI, neo4jCleanup, err := startNeo4j(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "neo4j: %v\n", err)
		os.Exit(1)
	}
	defer neo4jCleanup()
	testNeo4jURI = neo4jURI

	os.Exit(m.Run())
}

func TestPostgresArchive(t *testing.T) {
	skipIfNoStack(t)
	ctx := context.Background()

	archive, err := persist.NewPostgresStore(ctx, testPgDSN, testLogger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer archive.Close()
	if err := archive.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	th := thought.New(thought.KindGoal, term.Structure{
		Name: "acquire",
		Args: []term.Term{term.Atom{Name: "milk"}},
	})
	if err := archive.SyncThoughts(ctx, []*thought.Thought{th}, nil); err != nil {
		t.Fatalf("sync: %v", err)
	}

	loaded, err := archive.LoadByStatus(ctx, thought.StatusPending)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != th.ID {
		t.Fatalf("loaded %d thoughts, want the archived one", len(loaded))
	}
	if !term.Equal(loaded[0].Content, th.Content) {
		t.Errorf("content = %v, want %v", loaded[0].Content, th.Content)
	}

	// Status transition is an upsert, not a duplicate.
	done := th.Clone()
	done.Status = thought.StatusDone
	if err := archive.SyncThoughts(ctx, []*thought.Thought{done}, nil); err != nil {
		t.Fatalf("sync update: %v", err)
	}
	pending, _ := archive.LoadByStatus(ctx, thought.StatusPending)
	if len(pending) != 0 {
		t.Errorf("still %d pending after transition", len(pending))
	}
	finished, _ := archive.LoadByStatus(ctx, thought.StatusDone)
	if len(finished) != 1 {
		t.Errorf("%d done, want 1", len(finished))
	}

	// Deletion removes the row.
	if err := archive.SyncThoughts(ctx, nil, []string{th.ID}); err != nil {
		t.Fatalf("sync delete: %v", err)
	}
	finished, _ = archive.LoadByStatus(ctx, thought.StatusDone)
	if len(finished) != 0 {
		t.Errorf("row survived deletion")
	}
}

func TestRedisEventStream(t *testing.T) {
	skipIfNoStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pub, err := events.NewPublisher(testRedisURL, testLogger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pub.Close()

	sub := pub.Subscribe(ctx)
	// Give the subscriber a moment to issue its first blocking read.
	time.Sleep(500 * time.Millisecond)

	th := thought.New(thought.KindInput, term.Atom{Name: "buy milk"})
	if err := pub.SyncThoughts(ctx, []*thought.Thought{th}, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-sub:
		if ev.Type != "changed" || ev.ThoughtID != th.ID {
			t.Errorf("event = %+v", ev)
		}
		if ev.Content != "buy milk" {
			t.Errorf("content = %q", ev.Content)
		}
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	if err := pub.SyncThoughts(ctx, nil, []string{th.ID}); err != nil {
		t.Fatalf("publish delete: %v", err)
	}
	select {
	case ev := <-sub:
		if ev.Type != "deleted" || ev.ThoughtID != th.ID {
			t.Errorf("event = %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("no deletion event received")
	}
}

func TestNeo4jLineageMirror(t *testing.T) {
	skipIfNoStack(t)
	ctx := context.Background()

	mirror, err := lineage.NewMirror(testNeo4jURI, "", "", testLogger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer mirror.Close(ctx)
	if err := mirror.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	root := thought.New(thought.KindInput, term.Atom{Name: "buy milk"})
	goal := thought.NewChild(root, thought.KindGoal, term.Atom{Name: "acquire milk"})
	step := thought.NewChild(goal, thought.KindStrategy, term.Atom{Name: "go to shop"})

	if err := mirror.SyncThoughts(ctx, []*thought.Thought{root, goal, step}, nil); err != nil {
		t.Fatalf("sync: %v", err)
	}

	ancestors, err := mirror.Ancestry(ctx, step.ID)
	if err != nil {
		t.Fatalf("ancestry: %v", err)
	}
	if len(ancestors) != 2 {
		t.Fatalf("ancestry = %v, want goal and root", ancestors)
	}
	seen := map[string]bool{}
	for _, id := range ancestors {
		seen[id] = true
	}
	if !seen[goal.ID] || !seen[root.ID] {
		t.Errorf("ancestry missing expected ids: %v", ancestors)
	}

	if err := mirror.SyncThoughts(ctx, nil, []string{step.ID}); err != nil {
		t.Fatalf("sync delete: %v", err)
	}
	if ancestors, _ = mirror.Ancestry(ctx, step.ID); len(ancestors) != 0 {
		t.Errorf("deleted node still has ancestry: %v", ancestors)
	}
}
