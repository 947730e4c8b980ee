package web

import (
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/gorilla/websocket"
    "github.com/jaminalder/tic-tac-toe-solver/internal/app"
    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
    "go.uber.org/zap"
)

// Option configures the HTTP surface.
type Option func(*handlers)

// WithLogger sets the request and handler logger.
func WithLogger(l *zap.Logger) Option {
    return func(h *handlers) {
        if l != nil {
            h.log = l
        }
    }
}

// WithHeartbeat sets the SSE and websocket keepalive interval.
func WithHeartbeat(d time.Duration) Option {
    return func(h *handlers) {
        if d > 0 {
            h.heartbeat = d
        }
    }
}

// WithDefaultKinds sets the kinds preselected for each seat and used when a
// create request leaves a seat unspecified.
func WithDefaultKinds(x, o search.Kind) Option {
    return func(h *handlers) {
        h.defaults = map[string]search.Kind{"x": x, "o": o}
    }
}

// NewServer wires routes and returns an http.Handler. It installs a board
// renderer on s so SSE subscribers receive board fragments.
func NewServer(s *app.Service, opts ...Option) http.Handler {
    h := &handlers{
        svc:       s,
        tpl:       loadTemplates(),
        log:       zap.NewNop(),
        heartbeat: 15 * time.Second,
        upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
        defaults:  map[string]search.Kind{"x": search.Human, "o": search.Human},
    }
    for _, o := range opts {
        o(h)
    }
    s.SetRenderer(func(gs app.GameState) []byte { return h.renderBoard(gs, "") })

    r := chi.NewRouter()
    r.Use(middleware.RequestID)
    r.Use(requestLogger(h.log))
    r.Use(middleware.Recoverer)

    r.Get("/", h.index)
    r.Post("/game", h.create)
    r.Route("/game/{id}", func(r chi.Router) {
        r.Get("/", h.view)
        r.Post("/join", h.join)
        r.Post("/play", h.play)
        r.Post("/rematch", h.rematch)
        r.Get("/events", h.events)
        r.Get("/ws", h.socket)
    })
    r.Post("/api/move", h.move)
    return r
}

// requestLogger logs each request through zap with chi's request ID.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
            start := time.Now()
            defer func() {
                log.Info("request",
                    zap.String("id", middleware.GetReqID(r.Context())),
                    zap.String("method", r.Method),
                    zap.String("path", r.URL.Path),
                    zap.Int("status", ww.Status()),
                    zap.Int("bytes", ww.BytesWritten()),
                    zap.Duration("took", time.Since(start)),
                )
            }()
            next.ServeHTTP(ww, r)
        })
    }
}
