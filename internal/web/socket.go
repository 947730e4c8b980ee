package web

import (
    "context"
    "net/http"
    "reflect"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/gorilla/websocket"
    "github.com/jaminalder/tic-tac-toe-solver/internal/app"
    "github.com/jaminalder/tic-tac-toe-solver/internal/domain"
    "github.com/mitchellh/mapstructure"
    "go.uber.org/zap"
)

// message is the websocket envelope. Contents is decoded per Type.
type message struct {
    Type     string      `json:"type"`
    Contents interface{} `json:"contents,omitempty"`
}

// toMessage names a message after the type of its contents.
func toMessage(contents interface{}) message {
    return message{Type: reflect.TypeOf(contents).Name(), Contents: contents}
}

// MakeMoveRequest asks to play at a cell.
type MakeMoveRequest struct {
    Cell int `mapstructure:"cell"`
}

// GameStateBroadcast is pushed after every change to the game.
type GameStateBroadcast struct {
    ID       string `json:"id"`
    Board    string `json:"board"`
    StateKey string `json:"state_key"`
    Turn     string `json:"turn"`
    Over     bool   `json:"over"`
    Winner   string `json:"winner,omitempty"`
    Moves    int    `json:"moves"`
    X        string `json:"x"`
    O        string `json:"o"`
    You      string `json:"you,omitempty"`
}

// ErrorResponse reports a rejected request.
type ErrorResponse struct {
    Reason string `json:"reason"`
}

func newGameStateBroadcast(gs app.GameState, playerID string) GameStateBroadcast {
    var board [9]byte
    for i := 1; i <= 9; i++ {
        board[i-1] = gs.Game.Board.Label(i)[0]
    }
    return GameStateBroadcast{
        ID:       gs.ID,
        Board:    string(board[:]),
        StateKey: gs.Game.Board.StateKey(),
        Turn:     gs.Game.Turn.String(),
        Over:     gs.Game.Over,
        Winner:   gs.Game.Winner.String(),
        Moves:    gs.Game.Moves,
        X:        gs.XKind.String(),
        O:        gs.OKind.String(),
        You:      gs.Seat(playerID).String(),
    }
}

const socketWriteWait = 5 * time.Second

func (h *handlers) socket(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    pid := playerFromCookie(r)
    if pid == "" {
        http.Error(w, "missing player_id cookie", http.StatusUnauthorized)
        return
    }
    side, _, err := h.svc.Join(id, pid)
    if err != nil {
        http.NotFound(w, r)
        return
    }
    conn, err := h.upgrader.Upgrade(w, r, nil)
    if err != nil {
        h.log.Warn("websocket upgrade", zap.Error(err))
        return
    }
    defer conn.Close()
    h.log.Info("socket joined", zap.String("game", id), zap.String("seat", seatName(side)))

    ctx, cancel := context.WithCancel(r.Context())
    defer cancel()
    updates, unsub, err := h.svc.Subscribe(ctx, id)
    if err != nil {
        return
    }
    defer unsub()

    replies := make(chan message, 4)
    go h.socketWriter(ctx, cancel, conn, id, pid, updates, replies)

    if gs, ok := h.svc.Get(id); ok {
        replies <- toMessage(newGameStateBroadcast(*gs, pid))
    }
    for {
        var msg message
        if err := conn.ReadJSON(&msg); err != nil {
            if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
                h.log.Debug("websocket read", zap.String("game", id), zap.Error(err))
            }
            return
        }
        reply, ok := h.handleSocketMessage(id, pid, msg)
        if !ok {
            continue
        }
        select {
        case replies <- reply:
        case <-ctx.Done():
            return
        }
    }
}

// handleSocketMessage applies a client request. Successful moves are
// reported through the broadcast, so only errors produce a direct reply.
func (h *handlers) handleSocketMessage(id, pid string, msg message) (message, bool) {
    var err error
    switch msg.Type {
    case "MakeMoveRequest":
        var req MakeMoveRequest
        if derr := mapstructure.Decode(msg.Contents, &req); derr != nil {
            return toMessage(ErrorResponse{Reason: "unable to parse MakeMoveRequest"}), true
        }
        _, err = h.svc.Play(id, pid, req.Cell)
    case "RematchRequest":
        _, err = h.svc.Rematch(id, pid)
    default:
        return toMessage(ErrorResponse{Reason: "unknown message type " + msg.Type}), true
    }
    if err != nil {
        return toMessage(ErrorResponse{Reason: errorMessage(err)}), true
    }
    return message{}, false
}

// socketWriter owns all writes to conn. Closing conn on exit unblocks the
// reader.
func (h *handlers) socketWriter(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, id, pid string, updates <-chan []byte, replies <-chan message) {
    defer conn.Close()
    defer cancel()
    ticker := time.NewTicker(h.heartbeat)
    defer ticker.Stop()
    write := func(m message) bool {
        _ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
        return conn.WriteJSON(m) == nil
    }
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            _ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
            if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        case m := <-replies:
            if !write(m) {
                return
            }
        case _, ok := <-updates:
            if !ok {
                return
            }
            gs, found := h.svc.Get(id)
            if !found {
                return
            }
            if !write(toMessage(newGameStateBroadcast(*gs, pid))) {
                return
            }
        }
    }
}

// seatName is used in logs when a socket joins.
func seatName(c domain.Cell) string {
    if c == domain.Open {
        return "spectator"
    }
    return c.String()
}
