package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

type item struct {
	id string
}

func (i *item) EntityID() string { return i.id }

func TestDrainChanges(t *testing.T) {
	s := New[*item]("test", zap.NewNop())

	x := &item{id: "abc-123"}
	s.Add(x)

	changed, deleted := s.DrainChanges()
	if len(changed) != 1 || changed[0].id != x.id {
		t.Fatalf("changed = %v, want [%s]", changed, x.id)
	}
	if len(deleted) != 0 {
		t.Fatalf("deleted = %v, want empty", deleted)
	}

	// Second drain is empty until another mutation.
	changed, deleted = s.DrainChanges()
	if len(changed) != 0 || len(deleted) != 0 {
		t.Errorf("second drain = (%v, %v), want empty", changed, deleted)
	}

	s.Delete(x.id)
	changed, deleted = s.DrainChanges()
	if len(changed) != 0 {
		t.Errorf("changed after delete = %v, want empty", changed)
	}
	if len(deleted) != 1 || deleted[0] != x.id {
		t.Errorf("deleted = %v, want [%s]", deleted, x.id)
	}
}

func TestChangeThenDeleteShowsOnlyDeletion(t *testing.T) {
	s := New[*item]("test", zap.NewNop())
	x := &item{id: "abc-123"}
	s.Add(x)
	s.Update(x)
	s.Delete(x.id)

	changed, deleted := s.DrainChanges()
	if len(changed) != 0 {
		t.Errorf("changed = %v, want empty", changed)
	}
	if len(deleted) != 1 {
		t.Errorf("deleted = %v, want one id", deleted)
	}
}

func TestDeleteUnknown(t *testing.T) {
	s := New[*item]("test", zap.NewNop())
	if s.Delete("missing") {
		t.Error("Delete of unknown id returned true")
	}
}

func TestFindByIDPrefix(t *testing.T) {
	s := New[*item]("test", zap.NewNop())
	s.Add(&item{id: "abcdef"})
	s.Add(&item{id: "abxyz"})

	// Too short.
	if _, ok := s.FindByIDPrefix("ab"); ok {
		t.Error("2-char prefix resolved; minimum is 3")
	}
	// Unique.
	got, ok := s.FindByIDPrefix("abc")
	if !ok || got.id != "abcdef" {
		t.Errorf("FindByIDPrefix(abc) = (%v, %v), want abcdef", got, ok)
	}
	// Ambiguous prefix must not return an arbitrary match.
	s.Add(&item{id: "abcdzz"})
	if _, ok := s.FindByIDPrefix("abc"); ok {
		t.Error("ambiguous prefix resolved")
	}
	// No match at all.
	if _, ok := s.FindByIDPrefix("zzz"); ok {
		t.Error("unmatched prefix resolved")
	}
}

func TestConcurrentMutations(t *testing.T) {
	s := New[*item]("test", zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%03d", n)
			s.Add(&item{id: id})
			s.Update(&item{id: id})
			if n%2 == 0 {
				s.Delete(id)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 25 {
		t.Errorf("Len = %d, want 25", s.Len())
	}
	changed, deleted := s.DrainChanges()
	if len(changed) != 25 || len(deleted) != 25 {
		t.Errorf("drain = (%d changed, %d deleted), want (25, 25)", len(changed), len(deleted))
	}
}

func TestThoughtsUpdatePreservesCreation(t *testing.T) {
	s := NewThoughts(zap.NewNop())

	th := thought.New(thought.KindInput, term.Atom{Name: "buy milk"})
	created := th.Metadata.CreatedAt
	s.Add(th)

	time.Sleep(5 * time.Millisecond)
	cp := th.Clone()
	cp.Status = thought.StatusDone
	cp.Metadata.CreatedAt = time.Now() // must be ignored by Update
	s.Update(cp)

	got, ok := s.Get(th.ID)
	if !ok {
		t.Fatal("thought missing after update")
	}
	if !got.Metadata.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on update: %v -> %v", created, got.Metadata.CreatedAt)
	}
	if !got.Metadata.ModifiedAt.After(created) {
		t.Error("ModifiedAt was not refreshed on update")
	}
	if got.Status != thought.StatusDone {
		t.Errorf("Status = %v, want done", got.Status)
	}
}
