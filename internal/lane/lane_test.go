package lane

import "testing"

func TestAssignBasicOverlap(t *testing.T) {
	a := Assign([]Span{
		{ID: "A", Start: 0, End: 10},
		{ID: "B", Start: 10, End: 20},
		{ID: "C", Start: 5, End: 15},
	})
	if got := a.Lane("A"); got != 0 {
		t.Errorf("A on lane %d, want 0", got)
	}
	if got := a.Lane("B"); got != 0 {
		t.Errorf("B on lane %d, want 0 (A's lane frees at the shared boundary)", got)
	}
	if got := a.Lane("C"); got != 1 {
		t.Errorf("C on lane %d, want 1", got)
	}
	if a.Count != 2 {
		t.Errorf("Count = %d, want 2", a.Count)
	}
}

func TestAssignEmpty(t *testing.T) {
	a := Assign(nil)
	if a.Count != 0 || len(a.Lanes) != 0 {
		t.Errorf("empty input yielded %+v", a)
	}
	if a.Lane("nope") != 0 {
		t.Error("unknown ID should map to lane 0")
	}
}

func TestAssignNoOverlapSingleLane(t *testing.T) {
	a := Assign([]Span{
		{ID: "a", Start: 0, End: 5},
		{ID: "b", Start: 5, End: 10},
		{ID: "c", Start: 20, End: 30},
	})
	if a.Count != 1 {
		t.Errorf("Count = %d, want 1", a.Count)
	}
	for _, id := range []string{"a", "b", "c"} {
		if a.Lane(id) != 0 {
			t.Errorf("%s on lane %d, want 0", id, a.Lane(id))
		}
	}
}

func TestAssignDeterministicTies(t *testing.T) {
	spans := []Span{
		{ID: "b", Start: 0, End: 10},
		{ID: "a", Start: 0, End: 10},
	}
	for i := 0; i < 5; i++ {
		a := Assign(spans)
		if a.Lane("a") != 0 || a.Lane("b") != 1 {
			t.Fatalf("simultaneous starts not ordered by ID: a=%d b=%d", a.Lane("a"), a.Lane("b"))
		}
	}
}

func TestAssignZeroLength(t *testing.T) {
	a := Assign([]Span{
		{ID: "long", Start: 0, End: 10},
		{ID: "p1", Start: 5, End: 5},
		{ID: "p2", Start: 5, End: 5},
	})
	// Pulses free their lane immediately, so both fit above the long span.
	if a.Lane("long") != 0 {
		t.Errorf("long on lane %d, want 0", a.Lane("long"))
	}
	if a.Lane("p1") != 1 || a.Lane("p2") != 1 {
		t.Errorf("pulses on lanes %d/%d, want both on 1", a.Lane("p1"), a.Lane("p2"))
	}
	if a.Count != 2 {
		t.Errorf("Count = %d, want 2", a.Count)
	}
}

func TestAssignReusesFreedLanes(t *testing.T) {
	a := Assign([]Span{
		{ID: "a", Start: 0, End: 10},
		{ID: "b", Start: 0, End: 4},
		{ID: "c", Start: 4, End: 8}, // b's lane is free again
	})
	if a.Lane("c") != 1 {
		t.Errorf("c on lane %d, want 1 (lowest freed lane)", a.Lane("c"))
	}
	if a.Count != 2 {
		t.Errorf("Count = %d, want 2", a.Count)
	}
}

func TestAssignCountEqualsDepth(t *testing.T) {
	cases := [][]Span{
		{{ID: "a", Start: 0, End: 10}, {ID: "b", Start: 10, End: 20}, {ID: "c", Start: 5, End: 15}},
		{{ID: "a", Start: 0, End: 100}, {ID: "b", Start: 10, End: 20}, {ID: "c", Start: 15, End: 30}, {ID: "d", Start: 25, End: 40}},
		{{ID: "a", Start: 0, End: 1}, {ID: "b", Start: 0, End: 1}, {ID: "c", Start: 0, End: 1}, {ID: "d", Start: 0, End: 1}},
		{{ID: "a", Start: 3, End: 7}},
		nil,
	}
	for i, spans := range cases {
		if got, want := Assign(spans).Count, Depth(spans); got != want {
			t.Errorf("case %d: lane count %d != overlap depth %d", i, got, want)
		}
	}
}

func TestDistributeIsolatedSpansGetFullRow(t *testing.T) {
	slots := Distribute([]Span{
		{ID: "a", Start: 0, End: 5},
		{ID: "b", Start: 5, End: 10}, // shared boundary: separate cluster
		{ID: "c", Start: 20, End: 30},
	})
	for _, id := range []string{"a", "b", "c"} {
		if got := slots[id]; got != (Slot{Index: 0, Of: 1}) {
			t.Errorf("%s slot = %+v, want the full row", id, got)
		}
	}
}

func TestDistributeSplitsOverlapCluster(t *testing.T) {
	slots := Distribute([]Span{
		{ID: "a", Start: 0, End: 10},
		{ID: "c", Start: 5, End: 15},
		{ID: "b", Start: 10, End: 20},
		{ID: "solo", Start: 100, End: 110},
	})
	// a, c and b chain into one cluster two lanes deep.
	if got := slots["a"]; got != (Slot{Index: 0, Of: 2}) {
		t.Errorf("a slot = %+v, want {0 2}", got)
	}
	if got := slots["c"]; got != (Slot{Index: 1, Of: 2}) {
		t.Errorf("c slot = %+v, want {1 2}", got)
	}
	if got := slots["b"]; got != (Slot{Index: 0, Of: 2}) {
		t.Errorf("b slot = %+v, want {0 2}", got)
	}
	if got := slots["solo"]; got != (Slot{Index: 0, Of: 1}) {
		t.Errorf("solo slot = %+v, want the full row", got)
	}
}

func TestDistributeEmpty(t *testing.T) {
	if got := Distribute(nil); len(got) != 0 {
		t.Errorf("Distribute(nil) = %v", got)
	}
}

func TestBitsetGrowsPast64(t *testing.T) {
	spans := make([]Span, 70)
	for i := range spans {
		spans[i] = Span{ID: string(rune('!' + i)), Start: 0, End: 100}
	}
	a := Assign(spans)
	if a.Count != 70 {
		t.Errorf("Count = %d, want 70", a.Count)
	}
	seen := make(map[int]bool)
	for _, l := range a.Lanes {
		if seen[l] {
			t.Fatalf("lane %d assigned twice", l)
		}
		seen[l] = true
	}
}
