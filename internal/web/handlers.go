package web

import (
    "bytes"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/gorilla/websocket"
    "github.com/jaminalder/tic-tac-toe-solver/internal/app"
    "github.com/jaminalder/tic-tac-toe-solver/internal/domain"
    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
    "go.uber.org/zap"
)

type handlers struct {
    svc       *app.Service
    tpl       *templates
    log       *zap.Logger
    heartbeat time.Duration
    upgrader  websocket.Upgrader
    defaults  map[string]search.Kind
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
    return renderTemplate(h.tpl.board, "", newBoardView(gs, errMsg))
}

// errorMessage maps service and board errors to what players see.
func errorMessage(err error) string {
    switch {
    case errors.Is(err, app.ErrNotYourTurn):
        return "Not your turn"
    case errors.Is(err, app.ErrNotAPlayer):
        return "You are a spectator"
    case errors.Is(err, domain.ErrOccupied):
        return "Cell is occupied"
    case errors.Is(err, domain.ErrInvalidIndex):
        return "Pick a cell between 1 and 9"
    case errors.Is(err, domain.ErrGameOver):
        return "Game is over"
    case errors.Is(err, app.ErrNotOver):
        return "Finish this game first"
    default:
        return "Invalid move"
    }
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(renderTemplate(h.tpl.index, "", indexView{
        Seats:    []string{"x", "o"},
        Kinds:    search.Kinds(),
        Defaults: h.defaults,
    }))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
    _ = r.ParseForm()
    x, err := h.seatKind(r, "x")
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    o, err := h.seatKind(r, "o")
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    gs, err := h.svc.CreateGame(x, o)
    if err != nil {
        h.log.Error("create game", zap.Error(err))
        http.Error(w, "failed to create", http.StatusInternalServerError)
        return
    }
    http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

// seatKind reads a seat's kind from the form, falling back to the configured
// default when the field is absent.
func (h *handlers) seatKind(r *http.Request, seat string) (search.Kind, error) {
    v := r.Form.Get(seat)
    if v == "" {
        return h.defaults[seat], nil
    }
    k, err := search.ParseKind(v)
    if err != nil {
        return k, fmt.Errorf("%s: %w", seat, err)
    }
    return k, nil
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    // ensure cookie and auto-claim seat
    pid := ensurePlayerCookie(w, r)
    _, _, _ = h.svc.Join(id, pid)

    gs, ok := h.svc.Get(id)
    if !ok {
        http.NotFound(w, r)
        return
    }
    data := struct {
        ID    string
        Board boardView
    }{ID: gs.ID, Board: newBoardView(*gs, "")}

    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(renderTemplate(h.tpl.game, "", data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    pid := ensurePlayerCookie(w, r)
    _, gs, err := h.svc.Join(id, pid)
    if err != nil || gs == nil {
        http.NotFound(w, r)
        return
    }
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    _, _ = w.Write(h.renderBoard(*gs, ""))
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    pid := ensurePlayerCookie(w, r)
    _ = r.ParseForm()
    // a missing or malformed cell becomes 0 and is rejected as out of range
    cell, _ := strconv.Atoi(r.Form.Get("cell"))
    gs, err := h.svc.Play(id, pid, cell)
    h.writeResult(w, r, id, gs, err)
}

func (h *handlers) rematch(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    pid := ensurePlayerCookie(w, r)
    gs, err := h.svc.Rematch(id, pid)
    h.writeResult(w, r, id, gs, err)
}

// writeResult renders the board after an action, with the error shown
// inline when the action was rejected.
func (h *handlers) writeResult(w http.ResponseWriter, r *http.Request, id string, gs *app.GameState, err error) {
    var errMsg string
    if err != nil {
        if gs == nil {
            if g, ok := h.svc.Get(id); ok {
                gs = g
            }
        }
        errMsg = errorMessage(err)
    }
    if gs == nil {
        http.NotFound(w, r)
        return
    }
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    _, _ = w.Write(h.renderBoard(*gs, errMsg))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    if _, ok := h.svc.Get(id); !ok {
        http.NotFound(w, r)
        return
    }
    if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
        http.Error(w, "expected Accept: text/event-stream", http.StatusNotAcceptable)
        return
    }
    flusher, ok := w.(http.Flusher)
    if !ok {
        http.Error(w, "streaming unsupported", http.StatusInternalServerError)
        return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("X-Accel-Buffering", "no")
    ctx := r.Context()
    ch, unsub, err := h.svc.Subscribe(ctx, id)
    if err != nil {
        http.NotFound(w, r)
        return
    }
    defer unsub()
    // heartbeat ticker
    ticker := time.NewTicker(h.heartbeat)
    defer ticker.Stop()
    // Initial flush of headers
    flusher.Flush()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            _, _ = io.WriteString(w, ": ping\n\n")
            flusher.Flush()
        case b, ok := <-ch:
            if !ok {
                return
            }
            // Emit board event, one data line per payload line
            _, _ = io.WriteString(w, "event: board\n")
            for _, line := range bytes.Split(b, []byte("\n")) {
                _, _ = fmt.Fprintf(w, "data: %s\n", line)
            }
            _, _ = io.WriteString(w, "\n")
            flusher.Flush()
        }
    }
}
