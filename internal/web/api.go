package web

import (
    "encoding/json"
    "errors"
    "net/http"

    "github.com/jaminalder/tic-tac-toe-solver/internal/domain"
    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
    "go.uber.org/zap"
)

// moveRequest asks the engine for a move on an arbitrary board. P1Turn
// defaults to whoever the token counts say is to move.
type moveRequest struct {
    Board  string `json:"board"`
    P1Turn *bool  `json:"p1_turn"`
    Kind   string `json:"kind"`
}

type moveResponse struct {
    Cell     int    `json:"cell"`
    StateKey string `json:"state_key"`
    Score    int    `json:"score"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}

func (h *handlers) move(w http.ResponseWriter, r *http.Request) {
    var req moveRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: "invalid JSON body"})
        return
    }
    b, err := domain.ParseBoard(req.Board)
    if err != nil {
        writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: err.Error()})
        return
    }
    kind, err := search.ParseKind(req.Kind)
    if err != nil {
        writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: err.Error()})
        return
    }
    mover, ok := b.ToMove()
    if !ok {
        writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: "token counts cannot arise in play"})
        return
    }
    p1Turn := mover == domain.X
    if req.P1Turn != nil && *req.P1Turn != p1Turn {
        writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: search.ErrWrongMover.Error()})
        return
    }
    if _, won := b.Winner(); won {
        writeJSON(w, http.StatusConflict, ErrorResponse{Reason: domain.ErrGameOver.Error()})
        return
    }

    engine := h.svc.Engine()
    cell, err := engine.PickMove(b, p1Turn, kind)
    switch {
    case errors.Is(err, search.ErrNoMoves):
        writeJSON(w, http.StatusConflict, ErrorResponse{Reason: err.Error()})
        return
    case err != nil:
        writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: err.Error()})
        return
    }
    next := b
    _ = next.Set(cell, p1Turn)
    resp := moveResponse{Cell: cell, StateKey: b.StateKey(), Score: engine.Score(next, !p1Turn)}
    h.log.Debug("api move", zap.Stringer("kind", kind), zap.Int("cell", cell), zap.Int("score", resp.Score))
    writeJSON(w, http.StatusOK, resp)
}
