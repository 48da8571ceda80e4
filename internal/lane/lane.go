// Package lane stacks the overlapping events of a group into vertical
// lanes so that no two events sharing a lane overlap in time.
//
// The allocator is a sweep over the sorted event-boundary stream with a
// bitset of occupied lanes. Greedy lowest-free-lane assignment over that
// stream is optimal for interval graphs: the number of lanes used equals
// the maximum number of events overlapping at any instant.
package lane

import (
	"math/bits"
	"sort"
)

// Span is the time footprint of one event. Start and End are epoch
// milliseconds with Start <= End; Start == End is a zero-length event that
// still occupies its instant.
type Span struct {
	ID    string
	Start int64
	End   int64
}

// Assignment maps event IDs to lanes. Count is the number of distinct
// lanes in use, i.e. the stacked height of the group in rows.
type Assignment struct {
	Lanes map[string]int
	Count int
}

// Lane returns the lane of id, or 0 if id is unknown.
func (a Assignment) Lane(id string) int {
	return a.Lanes[id]
}

const (
	kindEnd = iota // ends sort before starts at the same instant
	kindStart
)

type boundary struct {
	time  int64
	kind  int
	id    string
	span  int
	pulse bool // zero-length span: lane is freed right after assignment
}

// Assign computes the lane of each span. An interval ending exactly where
// another starts frees its lane before the newcomer claims one, so shared
// boundary points never count as overlap; simultaneous starts are ordered
// by ID for determinism. Runs in O(n log n); the whole group is resweeped
// on every call rather than updated incrementally, which is fine at
// typical group sizes.
func Assign(spans []Span) Assignment {
	out := Assignment{Lanes: make(map[string]int, len(spans))}
	if len(spans) == 0 {
		return out
	}

	stream := make([]boundary, 0, 2*len(spans))
	for i, s := range spans {
		if s.End <= s.Start {
			stream = append(stream, boundary{time: s.Start, kind: kindStart, id: s.ID, span: i, pulse: true})
			continue
		}
		stream = append(stream,
			boundary{time: s.Start, kind: kindStart, id: s.ID, span: i},
			boundary{time: s.End, kind: kindEnd, id: s.ID, span: i},
		)
	}
	sort.Slice(stream, func(i, j int) bool {
		a, b := stream[i], stream[j]
		if a.time != b.time {
			return a.time < b.time
		}
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		return a.id < b.id
	})

	var occupied bitset
	laneOf := make([]int, len(spans))
	for _, b := range stream {
		if b.kind == kindEnd {
			occupied.clear(laneOf[b.span])
			continue
		}
		l := occupied.claim()
		laneOf[b.span] = l
		out.Lanes[b.id] = l
		if l+1 > out.Count {
			out.Count = l + 1
		}
		if b.pulse {
			occupied.clear(l)
		}
	}
	return out
}

// Depth returns the maximum number of spans simultaneously overlapping at
// any instant, counting shared boundary points as non-overlapping. It
// equals the lane count Assign produces.
func Depth(spans []Span) int {
	type edge struct {
		time  int64
		delta int
	}
	edges := make([]edge, 0, 2*len(spans))
	for _, s := range spans {
		if s.End <= s.Start {
			continue
		}
		edges = append(edges,
			edge{time: s.Start, delta: 1},
			edge{time: s.End, delta: -1},
		)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].time != edges[j].time {
			return edges[i].time < edges[j].time
		}
		return edges[i].delta < edges[j].delta // decrements first on ties
	})
	depth, max := 0, 0
	for _, e := range edges {
		depth += e.delta
		if depth > max {
			max = depth
		}
	}
	return max
}

// Slot is a fractional vertical position inside a single shared row: the
// span sits at Index of Of equal slices.
type Slot struct {
	Index int
	Of    int
}

// Distribute assigns each span a slot within one row, so that spans in the
// same overlap cluster split the row evenly while isolated spans get the
// full row. Boundary semantics match Assign: a span ending exactly where
// another starts belongs to a different cluster.
func Distribute(spans []Span) map[string]Slot {
	assigned := Assign(spans)
	out := make(map[string]Slot, len(spans))
	if len(spans) == 0 {
		return out
	}

	stream := make([]boundary, 0, 2*len(spans))
	for i, s := range spans {
		if s.End <= s.Start {
			stream = append(stream, boundary{time: s.Start, kind: kindStart, id: s.ID, span: i, pulse: true})
			continue
		}
		stream = append(stream,
			boundary{time: s.Start, kind: kindStart, id: s.ID, span: i},
			boundary{time: s.End, kind: kindEnd, id: s.ID, span: i},
		)
	}
	sort.Slice(stream, func(i, j int) bool {
		a, b := stream[i], stream[j]
		if a.time != b.time {
			return a.time < b.time
		}
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		return a.id < b.id
	})

	// Group spans into overlap clusters: a new cluster opens whenever a
	// start arrives with nothing active.
	clusterOf := make([]int, len(spans))
	clusters := 0
	active := 0
	for _, b := range stream {
		if b.kind == kindEnd {
			active--
			continue
		}
		if active == 0 {
			clusters++
		}
		clusterOf[b.span] = clusters - 1
		if !b.pulse {
			active++
		}
	}

	// A cluster's height is the highest lane any of its members uses.
	height := make([]int, clusters)
	for i, s := range spans {
		if l := assigned.Lanes[s.ID] + 1; l > height[clusterOf[i]] {
			height[clusterOf[i]] = l
		}
	}
	for i, s := range spans {
		out[s.ID] = Slot{Index: assigned.Lanes[s.ID], Of: height[clusterOf[i]]}
	}
	return out
}

// bitset tracks occupied lanes as a growable bit vector.
type bitset []uint64

// claim finds the lowest unset bit, sets it, and returns its index.
func (b *bitset) claim() int {
	for w, word := range *b {
		if word != ^uint64(0) {
			bit := bits.TrailingZeros64(^word)
			(*b)[w] |= 1 << uint(bit)
			return 64*w + bit
		}
	}
	*b = append(*b, 1)
	return 64 * (len(*b) - 1)
}

func (b *bitset) clear(i int) {
	w := i / 64
	if w < len(*b) {
		(*b)[w] &^= 1 << uint(i%64)
	}
}
