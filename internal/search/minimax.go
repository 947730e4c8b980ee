package search

import (
    "github.com/jaminalder/tic-tac-toe-solver/internal/domain"
    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"
)

// Scores are from X's point of view regardless of who is to move.
const (
    WinScore  = 10
    LossScore = -10
    DrawScore = 0
)

// Score returns the minimax value of b with the given player to move. The
// cache is keyed on position alone, so p1Turn must agree with b.ToMove.
func (e *Engine) Score(b domain.Board, p1Turn bool) int {
    key := b.StateKey()
    if s, ok := e.cache.Load(key); ok {
        return s
    }

    var score int
    if w, ok := b.Winner(); ok {
        if w == domain.X {
            score = WinScore
        } else {
            score = LossScore
        }
    } else if b.IsFull() {
        score = DrawScore
    } else {
        first := true
        for _, i := range b.OpenSpaces() {
            child := b
            _ = child.Set(i, p1Turn)
            s := e.Score(child, !p1Turn)
            if first || better(s, score, p1Turn) {
                score = s
                first = false
            }
        }
    }

    e.cache.Store(key, score)
    return score
}

func better(s, best int, p1Turn bool) bool {
    if p1Turn {
        return s > best
    }
    return s < best
}

// PickOptimal plays every open cell, scores the result for the opponent and
// keeps the best for the mover. Ties go to the lowest index.
func (e *Engine) PickOptimal(b domain.Board, p1Turn bool) (int, error) {
    open := b.OpenSpaces()
    if len(open) == 0 {
        return 0, ErrNoMoves
    }
    if mover, ok := b.ToMove(); !ok || mover != domain.Player(p1Turn) {
        return 0, ErrWrongMover
    }
    scores := make([]int, len(open))
    score := func(n int) {
        child := b
        _ = child.Set(open[n], p1Turn)
        scores[n] = e.Score(child, !p1Turn)
    }

    if e.parallel {
        var g errgroup.Group
        for n := range open {
            n := n
            g.Go(func() error {
                score(n)
                return nil
            })
        }
        // scoring cannot fail; Wait only joins the branches
        _ = g.Wait()
    } else {
        for n := range open {
            score(n)
        }
    }

    best := 0
    for n := 1; n < len(open); n++ {
        if better(scores[n], scores[best], p1Turn) {
            best = n
        }
    }
    hits, misses := e.cache.Stats()
    e.log.Debug("optimal search done",
        zap.Int("cell", open[best]),
        zap.Int("score", scores[best]),
        zap.Int("cached", e.cache.Len()),
        zap.Uint64("hits", hits),
        zap.Uint64("misses", misses),
    )
    return open[best], nil
}
