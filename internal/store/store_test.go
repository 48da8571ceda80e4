package store

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.PutGroup(Group{ID: "g1", Label: "First", Order: 0})
	s.PutGroup(Group{ID: "g2", Label: "Second", Order: 1})
	return s
}

func mustPut(t *testing.T, s *Store, e Event) {
	t.Helper()
	if err := s.PutEvent(e); err != nil {
		t.Fatalf("PutEvent(%s): %v", e.ID, err)
	}
}

func TestPutEventValidation(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutEvent(Event{ID: "x", Start: 10, End: 5, GroupID: "g1"}); !errors.Is(err, ErrInvalidSpan) {
		t.Errorf("inverted span: got %v, want ErrInvalidSpan", err)
	}
	if err := s.PutEvent(Event{ID: "x", Start: 0, End: 5, GroupID: "nope"}); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("unknown group: got %v, want ErrUnknownGroup", err)
	}
	if err := s.PutEvent(Event{ID: "x", Start: 0, End: 5, GroupID: "g1", Link: "ghost"}); !errors.Is(err, ErrUnknownLink) {
		t.Errorf("dangling link: got %v, want ErrUnknownLink", err)
	}
	mustPut(t, s, Event{ID: "x", Start: 0, End: 5, GroupID: "g1"})
}

func TestLaneDerivation(t *testing.T) {
	s := newTestStore(t)
	mustPut(t, s, Event{ID: "a", Start: 0, End: 10, GroupID: "g1"})
	mustPut(t, s, Event{ID: "b", Start: 10, End: 20, GroupID: "g1"})
	mustPut(t, s, Event{ID: "c", Start: 5, End: 15, GroupID: "g1"})

	if got := s.Lane("a", "g1"); got != 0 {
		t.Errorf("a on lane %d, want 0", got)
	}
	if got := s.Lane("b", "g1"); got != 0 {
		t.Errorf("b on lane %d, want 0", got)
	}
	if got := s.Lane("c", "g1"); got != 1 {
		t.Errorf("c on lane %d, want 1", got)
	}
	if got := s.LaneCount("g1"); got != 2 {
		t.Errorf("LaneCount(g1) = %d, want 2", got)
	}
	if got := s.LaneCount("g2"); got != 1 {
		t.Errorf("LaneCount(empty group) = %d, want 1", got)
	}
}

func TestLaneRecomputedOnGroupMove(t *testing.T) {
	s := newTestStore(t)
	mustPut(t, s, Event{ID: "a", Start: 0, End: 10, GroupID: "g1"})
	mustPut(t, s, Event{ID: "b", Start: 5, End: 15, GroupID: "g1"})
	if got := s.LaneCount("g1"); got != 2 {
		t.Fatalf("LaneCount(g1) = %d, want 2", got)
	}

	mustPut(t, s, Event{ID: "b", Start: 5, End: 15, GroupID: "g2"})
	if got := s.LaneCount("g1"); got != 1 {
		t.Errorf("LaneCount(g1) after move = %d, want 1", got)
	}
	if got := s.Lane("b", "g2"); got != 0 {
		t.Errorf("b on lane %d in g2, want 0", got)
	}
}

func TestRemoveEventClearsLinks(t *testing.T) {
	s := newTestStore(t)
	mustPut(t, s, Event{ID: "a", Start: 0, End: 10, GroupID: "g1"})
	mustPut(t, s, Event{ID: "b", Start: 10, End: 20, GroupID: "g1", Link: "a"})

	s.RemoveEvent("a")
	if _, ok := s.Event("a"); ok {
		t.Fatal("a still present after RemoveEvent")
	}
	b, ok := s.Event("b")
	if !ok {
		t.Fatal("b vanished")
	}
	if b.Link != "" {
		t.Errorf("b.Link = %q, want cleared", b.Link)
	}

	s.RemoveEvent("never-existed") // no-op
}

func TestGroupsSorted(t *testing.T) {
	s := New()
	s.PutGroup(Group{ID: "z", Order: 0})
	s.PutGroup(Group{ID: "a", Order: 2})
	s.PutGroup(Group{ID: "m", Order: 0})

	got := s.Groups()
	want := []string{"m", "z", "a"}
	if len(got) != len(want) {
		t.Fatalf("got %d groups, want %d", len(got), len(want))
	}
	for i, g := range got {
		if g.ID != want[i] {
			t.Errorf("group %d = %q, want %q", i, g.ID, want[i])
		}
	}
}

func TestViewGroup(t *testing.T) {
	s := newTestStore(t)
	mustPut(t, s, Event{ID: "a", Start: 0, End: 10, GroupID: "g1"})
	mustPut(t, s, Event{ID: "b", Start: 0, End: 10, GroupID: "g2"})

	g1 := s.ViewGroup("g1")
	if len(g1) != 1 || g1[0].ID != "a" {
		t.Errorf("ViewGroup(g1) = %v", g1)
	}
}

func TestSubscribeNotifications(t *testing.T) {
	s := newTestStore(t)
	var calls int
	unsub := s.Subscribe(func() { calls++ })

	mustPut(t, s, Event{ID: "a", Start: 0, End: 10, GroupID: "g1"})
	s.RemoveEvent("a")
	if calls != 2 {
		t.Errorf("subscriber called %d times, want 2", calls)
	}

	unsub()
	mustPut(t, s, Event{ID: "a", Start: 0, End: 10, GroupID: "g1"})
	if calls != 2 {
		t.Error("subscriber called after unsubscribe")
	}
}
