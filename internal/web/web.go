// Package web exposes the mounted widget over HTTP: the timeline page the
// browser renders, the raw SVG, and small JSON APIs mirroring the
// viewport accessors and interval/event queries.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"timegrid/internal/config"
	"timegrid/internal/interval"
	applog "timegrid/internal/log"
	"timegrid/internal/render"
	"timegrid/internal/timeunit"
	"timegrid/internal/widget"
)

// Server serves one widget instance.
type Server struct {
	cfg *config.Config
	w   *widget.Widget
	mux *http.ServeMux
}

// NewServer constructs the server and registers its routes.
func NewServer(cfg *config.Config, w *widget.Widget) *Server {
	s := &Server{cfg: cfg, w: w, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /timeline", s.handleTimeline)
	s.mux.HandleFunc("GET /svg", s.handleSVG)
	s.mux.HandleFunc("GET /api/viewport", s.handleViewportGet)
	s.mux.HandleFunc("POST /api/viewport", s.handleViewportPost)
	s.mux.HandleFunc("GET /api/intervals", s.handleIntervals)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	return s
}

// Handler returns the route handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	ba := s.cfg.BasicAuth
	if ba == nil || ba.Username == "" || ba.Password == "" {
		return h
	}
	applog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			h.ServeHTTP(rw, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, ba.Username) || !secureCompare(p, ba.Password) {
			rw.Header().Set("WWW-Authenticate", `Basic realm="timegrid", charset="UTF-8"`)
			http.Error(rw, "Unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(rw, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, map[string]string{"status": "ok"})
}

func (s *Server) handleTimeline(rw http.ResponseWriter, r *http.Request) {
	s.applyViewportQuery(r)
	svg, err := s.w.Frame(r.Context())
	if err != nil {
		applog.Error("frame render failed", err)
		http.Error(rw, "render failed", http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = rw.Write([]byte(render.Page(svg)))
}

func (s *Server) handleSVG(rw http.ResponseWriter, r *http.Request) {
	s.applyViewportQuery(r)
	svg, err := s.w.Frame(r.Context())
	if err != nil {
		applog.Error("frame render failed", err)
		http.Error(rw, "render failed", http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "image/svg+xml")
	_, _ = rw.Write([]byte(svg))
}

// applyViewportQuery maps optional query parameters onto viewport
// mutators, so a plain browser reload can pan and zoom. Malformed values
// are ignored by the viewport itself.
func (s *Server) applyViewportQuery(r *http.Request) {
	q := r.URL.Query()
	if v, ok := parseF(q.Get("start")); ok {
		s.w.Viewport.SetTimeStart(v)
	}
	if v, ok := parseF(q.Get("tpp")); ok {
		s.w.Viewport.SetTimePerPixel(v)
	}
	if v, ok := parseF(q.Get("pan")); ok {
		s.w.Viewport.Pan(v)
	}
	if v, ok := parseF(q.Get("zoom")); ok {
		center := s.w.Viewport.State().CanvasWidth / 2
		if c, ok := parseF(q.Get("center")); ok {
			center = c
		}
		s.w.Viewport.Zoom(v, center)
	}
	if v, ok := parseF(q.Get("scroll")); ok {
		s.w.Viewport.SetScrollOffset(v)
	}
}

func (s *Server) handleViewportGet(rw http.ResponseWriter, _ *http.Request) {
	vs := s.w.Viewport.State()
	writeJSON(rw, map[string]float64{
		"timeStart":          vs.TimeStart,
		"timePerPixel":       vs.TimePerPixel,
		"timeZero":           vs.TimeZero,
		"timePerPixelAnchor": vs.TimePerPixelAnchor,
		"canvasWidth":        vs.CanvasWidth,
		"canvasHeight":       vs.CanvasHeight,
		"scrollOffset":       vs.ScrollOffset,
	})
}

func (s *Server) handleViewportPost(rw http.ResponseWriter, r *http.Request) {
	s.applyViewportQuery(r)
	if r.URL.Query().Has("realign") {
		s.w.Viewport.Realign()
	}
	s.handleViewportGet(rw, r)
}

func (s *Server) handleIntervals(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unit := timeunit.Unit(q.Get("unit"))
	amount, err := strconv.Atoi(q.Get("amount"))
	if err != nil || amount < 1 {
		amount = 1
	}
	from, err1 := strconv.ParseInt(q.Get("from"), 10, 64)
	to, err2 := strconv.ParseInt(q.Get("to"), 10, 64)
	if !timeunit.Valid(unit) || err1 != nil || err2 != nil {
		http.Error(rw, "unit, from and to are required", http.StatusBadRequest)
		return
	}
	f := interval.Formatter{Layout: q.Get("format"), LayoutEnd: q.Get("formatEnd")}

	ivs, err := s.w.Intervals(r.Context(), unit, amount, from, to, f)
	if err != nil {
		applog.Error("interval query failed", err, "unit", unit, "amount", amount)
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(rw, ivs)
}

func (s *Server) handleEvents(rw http.ResponseWriter, _ *http.Request) {
	events := s.w.Store.View()
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, map[string]any{
			"event": ev,
			"lane":  s.w.Lane(ev.ID, ev.GroupID),
		})
	}
	writeJSON(rw, out)
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(rw)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func parseF(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
