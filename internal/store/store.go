// Package store keeps the widget's events and groups in indexed in-memory
// tables with explicit update-by-id operations, and mediates all gesture
// mutation through the drag/resize validation pipeline.
//
// Nothing here is persisted: the store lives and dies with the mounted
// widget. Lane assignments are derived state, recomputed per group
// whenever that group's set of (id, start, end) tuples changes.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"timegrid/internal/lane"
)

// Store errors.
var (
	ErrUnknownEvent  = errors.New("store: unknown event")
	ErrUnknownGroup  = errors.New("store: unknown group")
	ErrUnknownLink   = errors.New("store: link target does not exist")
	ErrInvalidSpan   = errors.New("store: event end before start")
	ErrGestureActive = errors.New("store: another gesture is already active for this event")
)

// Event is one time-interval bar. Link, if set, names the event this one
// follows: a linked event moves in lockstep with drags of its target and
// has its start pinned to the target's end after resizes.
type Event struct {
	ID       string `json:"id"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	GroupID  string `json:"groupId"`
	Link     string `json:"link,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

// Group is a horizontal band of the timeline. A compact group renders as a
// single row, with overlapping events distributed vertically inside it
// instead of stacked into extra lanes.
type Group struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	Order   int    `json:"order"`
	Compact bool   `json:"compact,omitempty"`
}

// Store is the single source of truth for events and groups. Committed
// state only changes through Put/Remove and gesture commits; during a
// gesture, uncommitted intermediate values live in a volatile overlay
// that readers see through View/ViewGroup.
type Store struct {
	mu      sync.Mutex
	events  map[string]Event
	groups  map[string]Group
	overlay map[string]Event // intermediate gesture state, nil when idle
	lanes   map[string]lane.Assignment

	subs    map[int]func()
	nextSub int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		events: make(map[string]Event),
		groups: make(map[string]Group),
		lanes:  make(map[string]lane.Assignment),
		subs:   make(map[int]func()),
	}
}

// Subscribe registers fn to run after every committed or intermediate
// change. The returned function unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// PutGroup inserts or updates a group.
func (s *Store) PutGroup(g Group) {
	s.mu.Lock()
	s.groups[g.ID] = g
	s.mu.Unlock()
	s.notify()
}

// PutEvent inserts or updates an event after checking the update-boundary
// invariants: a valid span, an existing group, and an existing link target.
func (s *Store) PutEvent(e Event) error {
	s.mu.Lock()
	if err := s.checkEventLocked(e, nil); err != nil {
		s.mu.Unlock()
		return err
	}
	old, existed := s.events[e.ID]
	s.events[e.ID] = e
	s.relayoutLocked(e.GroupID)
	if existed && old.GroupID != e.GroupID {
		s.relayoutLocked(old.GroupID)
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// checkEventLocked validates the update-boundary invariants for e. Groups
// in pending count as existing; commits pass the groups they are about to
// create, PutEvent passes nil.
func (s *Store) checkEventLocked(e Event, pending map[string]Group) error {
	if e.End < e.Start {
		return fmt.Errorf("%w: %q [%d, %d]", ErrInvalidSpan, e.ID, e.Start, e.End)
	}
	if _, ok := s.groups[e.GroupID]; !ok {
		if _, ok := pending[e.GroupID]; !ok {
			return fmt.Errorf("%w: %q for event %q", ErrUnknownGroup, e.GroupID, e.ID)
		}
	}
	if e.Link != "" {
		if _, ok := s.events[e.Link]; !ok && e.Link != e.ID {
			return fmt.Errorf("%w: %q for event %q", ErrUnknownLink, e.Link, e.ID)
		}
	}
	return nil
}

// RemoveEvent deletes an event and clears links pointing at it.
func (s *Store) RemoveEvent(id string) {
	s.mu.Lock()
	e, ok := s.events[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.events, id)
	for fid, f := range s.events {
		if f.Link == id {
			f.Link = ""
			s.events[fid] = f
		}
	}
	s.relayoutLocked(e.GroupID)
	s.mu.Unlock()
	s.notify()
}

// Event returns the committed version of id.
func (s *Store) Event(id string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	return e, ok
}

// Groups returns all groups sorted by Order then ID.
func (s *Store) Groups() []Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// View returns every event as currently visible: committed state with the
// gesture overlay applied on top. Sorted by ID for determinism.
func (s *Store) View() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.events))
	for id, e := range s.events {
		if s.overlay != nil {
			if o, ok := s.overlay[id]; ok {
				e = o
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ViewGroup returns the visible events of one group, sorted by ID.
func (s *Store) ViewGroup(groupID string) []Event {
	all := s.View()
	out := all[:0:0]
	for _, e := range all {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out
}

// Lane returns the lane index of eventID within groupID, derived from the
// committed state. Unknown IDs map to lane 0.
func (s *Store) Lane(eventID, groupID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lanes[groupID].Lane(eventID)
}

// LaneCount returns the number of lanes groupID currently needs.
func (s *Store) LaneCount(groupID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lanes[groupID].Count
	if n < 1 {
		n = 1
	}
	return n
}

// relayoutLocked recomputes the lane assignment of one group from the
// committed events. Full resweep; caller holds the lock.
func (s *Store) relayoutLocked(groupID string) {
	spans := make([]lane.Span, 0, 8)
	for _, e := range s.events {
		if e.GroupID == groupID {
			spans = append(spans, lane.Span{ID: e.ID, Start: e.Start, End: e.End})
		}
	}
	if len(spans) == 0 {
		delete(s.lanes, groupID)
		return
	}
	s.lanes[groupID] = lane.Assign(spans)
}

// linkedSetLocked returns the IDs of every event that transitively follows
// root through Link, excluding root itself, in link-depth order: direct
// followers first, then their followers, so a resize cascade can pin each
// follower after its target in a single forward pass. IDs within one depth
// are sorted. Caller holds the lock.
func (s *Store) linkedSetLocked(root string) []string {
	seen := map[string]bool{root: true}
	frontier := map[string]bool{root: true}
	var out []string
	for len(frontier) > 0 {
		next := make([]string, 0, 4)
		for id, e := range s.events {
			if !seen[id] && e.Link != "" && frontier[e.Link] {
				next = append(next, id)
			}
		}
		sort.Strings(next)
		frontier = make(map[string]bool, len(next))
		for _, id := range next {
			seen[id] = true
			frontier[id] = true
		}
		out = append(out, next...)
	}
	return out
}
