// Package viewport owns the mapping between wall-clock time and horizontal
// pixel coordinates: the pannable, zoomable window the rest of the engine
// renders through.
//
// All math is done in float64 milliseconds. TimeZero and TimePerPixelAnchor
// form a periodically realigned reference frame: downstream transforms use
// (t - TimeZero) / TimePerPixelAnchor, which stays numerically small no
// matter how far the user has cumulatively panned or zoomed, because the
// anchor is resynced whenever drift exceeds a threshold.
package viewport

import (
	"math"
	"sync"
)

// Zoom clamps, in milliseconds per pixel. MinTimePerPixel is well below one
// millisecond per pixel; MaxTimePerPixel puts several centuries on a
// 1000px canvas.
const (
	MinTimePerPixel = 1e-4
	MaxTimePerPixel = 1e10
)

// Realignment thresholds: positional drift in pixels, scale drift as the
// magnitude of log(TimePerPixel / TimePerPixelAnchor).
const (
	realignPixelDrift = 1200.0
	realignScaleDrift = 0.5
)

// State is a snapshot of the viewport.
type State struct {
	TimeStart          float64 // epoch ms at the left canvas edge
	TimePerPixel       float64 // ms of time per horizontal pixel
	TimeZero           float64 // anchor timestamp for visual transforms
	TimePerPixelAnchor float64 // anchor zoom for visual transforms
	CanvasWidth        float64
	CanvasHeight       float64
	ContentHeight      float64
	ScrollOffset       float64
}

// TimeAt returns the timestamp under pixel x.
func (s State) TimeAt(x float64) float64 {
	return s.TimeStart + x*s.TimePerPixel
}

// PixelAt returns the pixel position of timestamp t using the live values.
func (s State) PixelAt(t float64) float64 {
	return (t - s.TimeStart) / s.TimePerPixel
}

// AnchoredPixelAt returns the pixel-space value of t in the anchored
// reference frame. This is the transform handed to renderers.
func (s State) AnchoredPixelAt(t float64) float64 {
	return (t - s.TimeZero) / s.TimePerPixelAnchor
}

// TimeEnd returns the timestamp at the right canvas edge.
func (s State) TimeEnd() float64 {
	return s.TimeStart + s.CanvasWidth*s.TimePerPixel
}

// Viewport is the state machine. One instance exists per mounted widget;
// all mutation goes through its methods, which reject malformed input
// (non-finite or non-positive values) by leaving the state unchanged.
type Viewport struct {
	mu      sync.Mutex
	s       State
	subs    map[int]func(State)
	nextSub int
}

// New creates a viewport showing timeStart at pixel 0 with the given zoom.
// Invalid arguments fall back to a 1s/px view starting at the epoch.
func New(timeStart, timePerPixel, canvasWidth, canvasHeight float64) *Viewport {
	if !finite(timeStart) {
		timeStart = 0
	}
	timePerPixel = clampZoom(timePerPixel)
	if !finite(canvasWidth) || canvasWidth < 0 {
		canvasWidth = 0
	}
	if !finite(canvasHeight) || canvasHeight < 0 {
		canvasHeight = 0
	}
	return &Viewport{
		s: State{
			TimeStart:          timeStart,
			TimePerPixel:       timePerPixel,
			TimeZero:           timeStart,
			TimePerPixelAnchor: timePerPixel,
			CanvasWidth:        canvasWidth,
			CanvasHeight:       canvasHeight,
		},
		subs: make(map[int]func(State)),
	}
}

// State returns a snapshot.
func (v *Viewport) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.s
}

// Subscribe registers fn to be called with a snapshot after every state
// change. The returned function unsubscribes.
func (v *Viewport) Subscribe(fn func(State)) func() {
	v.mu.Lock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

// publish snapshots state and notifies subscribers outside the lock, so a
// subscriber may read the viewport again without deadlocking.
func (v *Viewport) publish() {
	v.mu.Lock()
	snap := v.s
	fns := make([]func(State), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// SetTimeStart moves the left edge to t.
func (v *Viewport) SetTimeStart(t float64) {
	if !finite(t) {
		return
	}
	v.mu.Lock()
	v.s.TimeStart = t
	v.maybeRealign()
	v.mu.Unlock()
	v.publish()
}

// SetTimePerPixel sets the zoom, clamped to the legal range.
func (v *Viewport) SetTimePerPixel(tpp float64) {
	if !finite(tpp) || tpp <= 0 {
		return
	}
	v.mu.Lock()
	v.s.TimePerPixel = clampZoom(tpp)
	v.maybeRealign()
	v.mu.Unlock()
	v.publish()
}

// Pan shifts the viewport by deltaPixels: positive deltas drag the content
// rightward, revealing earlier times.
func (v *Viewport) Pan(deltaPixels float64) {
	if !finite(deltaPixels) {
		return
	}
	v.mu.Lock()
	v.s.TimeStart -= deltaPixels * v.s.TimePerPixel
	v.maybeRealign()
	v.mu.Unlock()
	v.publish()
}

// Zoom scales TimePerPixel by factor while keeping the timestamp under
// centerPixel fixed on screen. The factor is limited so the resulting zoom
// stays within [MinTimePerPixel, MaxTimePerPixel].
func (v *Viewport) Zoom(factor, centerPixel float64) {
	if !finite(factor) || factor <= 0 || !finite(centerPixel) {
		return
	}
	v.mu.Lock()
	centerTime := v.s.TimeStart + centerPixel*v.s.TimePerPixel
	tpp := clampZoom(v.s.TimePerPixel * factor)
	v.s.TimePerPixel = tpp
	v.s.TimeStart = centerTime - centerPixel*tpp
	v.maybeRealign()
	v.mu.Unlock()
	v.publish()
}

// PinchAnchor captures the two timestamps under the touch points at
// gesture start.
type PinchAnchor struct {
	t1, t2 float64
}

// StartPinch derives the gesture anchors from the two touch x positions.
func (v *Viewport) StartPinch(p1, p2 float64) PinchAnchor {
	v.mu.Lock()
	defer v.mu.Unlock()
	return PinchAnchor{
		t1: v.s.TimeStart + p1*v.s.TimePerPixel,
		t2: v.s.TimeStart + p2*v.s.TimePerPixel,
	}
}

// MovePinch solves for the zoom and start that keep both anchor timestamps
// under the (possibly moved) touch points: a two-point affine solve.
// Degenerate input (coincident points, zero time spread) is ignored.
func (v *Viewport) MovePinch(a PinchAnchor, p1, p2 float64) {
	if !finite(p1) || !finite(p2) || p1 == p2 || a.t1 == a.t2 {
		return
	}
	tpp := (a.t2 - a.t1) / (p2 - p1)
	if !finite(tpp) || tpp <= 0 {
		return
	}
	v.mu.Lock()
	tpp = clampZoom(tpp)
	v.s.TimePerPixel = tpp
	v.s.TimeStart = a.t1 - p1*tpp
	v.maybeRealign()
	v.mu.Unlock()
	v.publish()
}

// Realign resyncs the anchor reference frame to the live values. It is
// also invoked automatically when drift exceeds the thresholds, and should
// be called once more when an inertial or animated transition settles.
func (v *Viewport) Realign() {
	v.mu.Lock()
	v.realignLocked()
	v.mu.Unlock()
	v.publish()
}

func (v *Viewport) realignLocked() {
	v.s.TimeZero = v.s.TimeStart
	v.s.TimePerPixelAnchor = v.s.TimePerPixel
}

// maybeRealign realigns when positional drift exceeds realignPixelDrift
// pixels or scale drift exceeds realignScaleDrift. Caller holds the lock.
func (v *Viewport) maybeRealign() {
	pixelDrift := math.Abs(v.s.TimeStart-v.s.TimeZero) / v.s.TimePerPixel
	scaleDrift := math.Abs(math.Log(v.s.TimePerPixel / v.s.TimePerPixelAnchor))
	if pixelDrift > realignPixelDrift || scaleDrift > realignScaleDrift {
		v.realignLocked()
	}
}

// Resize updates the canvas dimensions and clamps the scroll offset into
// the new legal range.
func (v *Viewport) Resize(width, height float64) {
	if !finite(width) || !finite(height) || width < 0 || height < 0 {
		return
	}
	v.mu.Lock()
	v.s.CanvasWidth = width
	v.s.CanvasHeight = height
	v.clampScrollLocked()
	v.mu.Unlock()
	v.publish()
}

// SetContentHeight records the total stacked height of all groups, which
// bounds vertical scrolling.
func (v *Viewport) SetContentHeight(h float64) {
	if !finite(h) || h < 0 {
		return
	}
	v.mu.Lock()
	v.s.ContentHeight = h
	v.clampScrollLocked()
	v.mu.Unlock()
	v.publish()
}

// SetScrollOffset scrolls vertically, clamped to [0, contentHeight-canvas].
func (v *Viewport) SetScrollOffset(off float64) {
	if !finite(off) {
		return
	}
	v.mu.Lock()
	v.s.ScrollOffset = off
	v.clampScrollLocked()
	v.mu.Unlock()
	v.publish()
}

func (v *Viewport) clampScrollLocked() {
	max := v.s.ContentHeight - v.s.CanvasHeight
	if max < 0 {
		max = 0
	}
	if v.s.ScrollOffset > max {
		v.s.ScrollOffset = max
	}
	if v.s.ScrollOffset < 0 {
		v.s.ScrollOffset = 0
	}
}

func clampZoom(tpp float64) float64 {
	if !finite(tpp) || tpp <= 0 {
		return 1000 // 1s per pixel
	}
	if tpp < MinTimePerPixel {
		return MinTimePerPixel
	}
	if tpp > MaxTimePerPixel {
		return MaxTimePerPixel
	}
	return tpp
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
