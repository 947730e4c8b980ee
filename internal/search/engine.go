package search

import (
    "fmt"

    "github.com/jaminalder/tic-tac-toe-solver/internal/domain"
    "go.uber.org/zap"
    "lukechampine.com/frand"
)

// Engine picks moves for bot seats. One engine, and its cache, may be
// shared by many games.
type Engine struct {
    log      *zap.Logger
    intn     func(n int) int
    cache    *Cache
    parallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
    return func(e *Engine) {
        if l != nil {
            e.log = l
        }
    }
}

// WithRand replaces the random source used by the Random strategy and the
// greedy fallbacks. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
    return func(e *Engine) {
        if intn != nil {
            e.intn = intn
        }
    }
}

// WithParallel scores the root moves of an optimal search concurrently.
func WithParallel(on bool) Option {
    return func(e *Engine) { e.parallel = on }
}

// WithCache shares an existing cache.
func WithCache(c *Cache) Option {
    return func(e *Engine) {
        if c != nil {
            e.cache = c
        }
    }
}

// NewEngine returns an engine with an empty cache.
func NewEngine(opts ...Option) *Engine {
    e := &Engine{
        log:   zap.NewNop(),
        intn:  frand.Intn,
        cache: NewCache(),
    }
    for _, o := range opts {
        o(e)
    }
    return e
}

// CacheSize returns the number of memoized states.
func (e *Engine) CacheSize() int { return e.cache.Len() }

// PickMove selects a cell index for the player to move.
func (e *Engine) PickMove(b domain.Board, p1Turn bool, kind Kind) (int, error) {
    if b.IsFull() {
        return 0, ErrNoMoves
    }
    var (
        cell int
        err  error
    )
    switch kind {
    case Human:
        return 0, ErrHumanKind
    case Random:
        cell = e.pickRandom(b)
    case GreedyWin:
        cell = e.pickWinning(b, p1Turn)
    case GreedyWinOrBlock:
        cell = e.pickWinningOrBlock(b, p1Turn)
    case Optimal:
        cell, err = e.PickOptimal(b, p1Turn)
    default:
        return 0, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
    }
    if err != nil {
        return 0, err
    }
    if ce := e.log.Check(zap.DebugLevel, "picked move"); ce != nil {
        ce.Write(
            zap.Stringer("kind", kind),
            zap.Stringer("player", domain.Player(p1Turn)),
            zap.Int("cell", cell),
            zap.String("state", b.StateKey()),
        )
    }
    return cell, nil
}

func (e *Engine) pickRandom(b domain.Board) int {
    open := b.OpenSpaces()
    return open[e.intn(len(open))]
}
