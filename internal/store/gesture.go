package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrValidationRejected wraps an After* hook failure: the gesture was
// rolled back and the store equals its pre-gesture state.
var ErrValidationRejected = errors.New("store: gesture rejected by validation hook")

// gestureState tracks the pipeline: IDLE → DRAGGING → {COMMITTING → IDLE |
// REJECTED → IDLE}.
type gestureState int

const (
	gestureIdle gestureState = iota
	gestureActive
	gestureCommitting
)

// ResizeEdge selects which boundary a resize gesture moves.
type ResizeEdge int

const (
	EdgeStart ResizeEdge = iota
	EdgeEnd
)

// Band is the vertical screen extent of one group's background region,
// used for group retargeting while dragging.
type Band struct {
	GroupID string
	Top     float64
	Height  float64
}

// retargetBuffer is how close (in pixels) the pointer must be to a band to
// snap to it when it sits between bands.
const retargetBuffer = 24.0

// RetargetGroup picks the group band for pointer height y: the band
// containing y wins; between bands, the nearest one within a small buffer;
// below all bands, the lowest band. The second result is false when no
// band applies and the event should keep its group.
func RetargetGroup(bands []Band, y float64) (string, bool) {
	if len(bands) == 0 {
		return "", false
	}
	bestID, bestDist := "", retargetBuffer + 1
	var lowest Band
	for i, b := range bands {
		if i == 0 || b.Top+b.Height > lowest.Top+lowest.Height {
			lowest = b
		}
		if y >= b.Top && y < b.Top+b.Height {
			return b.GroupID, true
		}
		d := b.Top - y
		if y >= b.Top+b.Height {
			d = y - (b.Top + b.Height)
		}
		if d < bestDist {
			bestID, bestDist = b.GroupID, d
		}
	}
	if bestID != "" && bestDist <= retargetBuffer {
		return bestID, true
	}
	if y >= lowest.Top+lowest.Height {
		return lowest.GroupID, true
	}
	return "", false
}

// Gesture is one in-flight drag or resize. Intermediate frames land in the
// store's volatile overlay; Release commits or reverts atomically.
type Gesture struct {
	s     *Store
	hooks Hooks
	id    string
	edge  ResizeEdge
	drag  bool

	base    map[string]Event // committed snapshot of the affected set
	order   []string         // manipulated first, then linked IDs by link depth
	state   gestureState
	current Proposal
}

func (s *Store) beginGesture(id string, hooks Hooks, drag bool, edge ResizeEdge) (*Gesture, error) {
	if hooks == nil {
		hooks = NopHooks{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, id)
	}
	if s.overlay != nil {
		return nil, ErrGestureActive
	}

	linked := s.linkedSetLocked(id)
	base := map[string]Event{id: e}
	order := append([]string{id}, linked...)
	for _, lid := range linked {
		base[lid] = s.events[lid]
	}

	s.overlay = make(map[string]Event, len(order))
	return &Gesture{
		s:     s,
		hooks: hooks,
		id:    id,
		edge:  edge,
		drag:  drag,
		base:  base,
		order: order,
		state: gestureActive,
	}, nil
}

// BeginDrag starts a drag of event id and its transitive linked set.
func (s *Store) BeginDrag(id string, hooks Hooks) (*Gesture, error) {
	return s.beginGesture(id, hooks, true, EdgeEnd)
}

// BeginResize starts a resize of the given boundary of event id.
func (s *Store) BeginResize(id string, edge ResizeEdge, hooks Hooks) (*Gesture, error) {
	return s.beginGesture(id, hooks, false, edge)
}

// Drag proposes moving the whole linked set by deltaMs relative to the
// gesture start, retargeting the group from the pointer height against the
// given bands. The synchronous validation hook may adjust the proposal;
// the (adjusted) result lands in the volatile overlay without committing.
func (g *Gesture) Drag(deltaMs int64, pointerY float64, bands []Band) error {
	if g.state != gestureActive || !g.drag {
		return errors.New("store: gesture is not an active drag")
	}

	group := g.base[g.id].GroupID
	if id, ok := RetargetGroup(bands, pointerY); ok {
		group = id
	}

	p := Proposal{}
	for _, id := range g.order {
		e := g.base[id]
		p.Events = append(p.Events, e)
		p.Changes = append(p.Changes, Change{
			EventID: id,
			Start:   e.Start + deltaMs,
			End:     e.End + deltaMs,
			GroupID: group,
		})
	}

	adjusted, err := g.hooks.ValidateDuringDrag(p)
	if err != nil {
		return err
	}
	g.applyIntermediate(adjusted)
	return nil
}

// Resize proposes moving the gesture's boundary by deltaMs relative to the
// gesture start. Followers keep their own end but have their start pinned
// to the manipulated event's new end, clamping and cascading down the link
// chain when a follower would become inverted.
func (g *Gesture) Resize(deltaMs int64) error {
	if g.state != gestureActive || g.drag {
		return errors.New("store: gesture is not an active resize")
	}

	e := g.base[g.id]
	start, end := e.Start, e.End
	switch g.edge {
	case EdgeStart:
		start += deltaMs
		if start > end {
			start = end
		}
	case EdgeEnd:
		end += deltaMs
		if end < start {
			end = start
		}
	}

	p := Proposal{
		Events:  []Event{e},
		Changes: []Change{{EventID: g.id, Start: start, End: end, GroupID: e.GroupID}},
	}

	// Pin direct followers to the new end; cascade only while the pin
	// inverts a follower's own span.
	pinned := map[string]int64{g.id: end}
	for _, id := range g.order[1:] {
		f := g.base[id]
		at, ok := pinned[f.Link]
		if !ok {
			continue
		}
		fStart, fEnd := at, f.End
		if fEnd < fStart {
			fEnd = fStart
		}
		pinned[id] = fEnd
		p.Events = append(p.Events, f)
		p.Changes = append(p.Changes, Change{EventID: id, Start: fStart, End: fEnd, GroupID: f.GroupID})
	}

	adjusted, err := g.hooks.ValidateDuringResize(p)
	if err != nil {
		return err
	}
	g.applyIntermediate(adjusted)
	return nil
}

func (g *Gesture) applyIntermediate(p Proposal) {
	g.current = p
	g.s.mu.Lock()
	for _, c := range p.Changes {
		e, ok := g.base[c.EventID]
		if !ok {
			if e, ok = g.s.events[c.EventID]; !ok {
				continue
			}
		}
		e.Start, e.End, e.GroupID = c.Start, c.End, c.GroupID
		g.s.overlay[c.EventID] = e
	}
	g.s.mu.Unlock()
	g.s.notify()
}

// Cancel discards all intermediate state and returns the pipeline to idle.
func (g *Gesture) Cancel() {
	if g.state == gestureIdle {
		return
	}
	g.state = gestureIdle
	g.s.mu.Lock()
	g.s.overlay = nil
	g.s.mu.Unlock()
	g.s.notify()
}

// Release runs the asynchronous validation hook and either commits the
// returned events as the new source of truth or reverts everything to the
// pre-gesture state. The commit is all-or-nothing: a rejected or failing
// hook leaves the store exactly as it was before the gesture began.
func (g *Gesture) Release(ctx context.Context) error {
	if g.state != gestureActive {
		return errors.New("store: gesture is not active")
	}
	g.state = gestureCommitting

	// The overlay is dropped up front: from here on the committed state is
	// authoritative, and a newly starting gesture may run concurrently
	// with this commit (last write wins).
	g.s.mu.Lock()
	g.s.overlay = nil
	g.s.mu.Unlock()

	p := g.current
	if len(p.Changes) == 0 {
		g.state = gestureIdle
		g.s.notify()
		return nil
	}

	var (
		adjusted Proposal
		err      error
	)
	if g.drag {
		adjusted, err = g.hooks.ValidateAfterDrag(ctx, p)
	} else {
		adjusted, err = g.hooks.ValidateAfterResize(ctx, p)
	}
	if err != nil {
		g.state = gestureIdle
		g.s.notify()
		return fmt.Errorf("%w: %v", ErrValidationRejected, err)
	}

	if err := g.s.commit(adjusted, g.hooks); err != nil {
		g.state = gestureIdle
		g.s.notify()
		return fmt.Errorf("%w: %v", ErrValidationRejected, err)
	}
	g.state = gestureIdle
	return nil
}

// commit applies a validated proposal to the committed tables, routing the
// final values through the merge hooks and recomputing lanes for every
// affected group. Either every change applies or none does.
func (s *Store) commit(p Proposal, hooks Hooks) error {
	s.mu.Lock()

	// Materialize the new event versions.
	news := make([]Event, 0, len(p.Changes))
	for _, c := range p.Changes {
		e, ok := s.events[c.EventID]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrUnknownEvent, c.EventID)
		}
		e.Start, e.End, e.GroupID = c.Start, c.End, c.GroupID
		news = append(news, e)
	}

	news = hooks.MergeNewEvents(news)

	// Let the host create any groups the changes moved events into, but
	// keep them pending until validation passes: a rejected commit must
	// leave the group table untouched too.
	var missing []Group
	for _, e := range news {
		if _, ok := s.groups[e.GroupID]; !ok {
			missing = append(missing, Group{ID: e.GroupID})
		}
	}
	pending := make(map[string]Group)
	for _, gr := range hooks.MergeNewGroups(missing) {
		pending[gr.ID] = gr
	}

	for _, e := range news {
		if err := s.checkEventLocked(e, pending); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	for id, gr := range pending {
		s.groups[id] = gr
	}

	touched := map[string]bool{}
	for _, e := range news {
		if old, ok := s.events[e.ID]; ok {
			touched[old.GroupID] = true
		}
		touched[e.GroupID] = true
		s.events[e.ID] = e
	}
	groups := make([]string, 0, len(touched))
	for id := range touched {
		groups = append(groups, id)
	}
	sort.Strings(groups)
	for _, id := range groups {
		s.relayoutLocked(id)
	}
	s.mu.Unlock()
	s.notify()
	return nil
}
