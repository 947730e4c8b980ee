package app

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/jaminalder/tic-tac-toe-solver/internal/domain"
    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
    "go.uber.org/zap"
)

// Errors exposed by the service layer.
var (
    ErrNotFound    = errors.New("game not found")
    ErrNotYourTurn = errors.New("not your turn")
    ErrNotAPlayer  = errors.New("not a player")
    ErrNotOver     = errors.New("game still in progress")
)

// GameState is the in-memory state tracked per game.
type GameState struct {
    ID      string
    Game    domain.Game
    X       string
    O       string
    XKind   search.Kind
    OKind   search.Kind
    Created time.Time
    Updated time.Time
}

// Kind returns how the given side picks its moves.
func (gs GameState) Kind(side domain.Cell) search.Kind {
    if side == domain.O {
        return gs.OKind
    }
    return gs.XKind
}

// Seat returns the side held by playerID, or Open for spectators.
func (gs GameState) Seat(playerID string) domain.Cell {
    switch {
    case playerID == "":
        return domain.Open
    case gs.X == playerID:
        return domain.X
    case gs.O == playerID:
        return domain.O
    }
    return domain.Open
}

func botSeat(k search.Kind) string { return "bot:" + k.String() }

type subscriber struct {
    ch        chan []byte
    closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games, bot seats and subscribers.
type Service struct {
    mu     sync.Mutex
    games  map[string]*GameState
    subs   map[string]map[*subscriber]struct{}
    render func(GameState) []byte
    engine *search.Engine
    log    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEngine sets the engine that plays bot seats.
func WithEngine(e *search.Engine) Option {
    return func(s *Service) {
        if e != nil {
            s.engine = e
        }
    }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
    return func(s *Service) {
        if l != nil {
            s.log = l
        }
    }
}

// WithRenderer sets the broadcast renderer.
func WithRenderer(renderer func(GameState) []byte) Option {
    return func(s *Service) {
        if renderer != nil {
            s.render = renderer
        }
    }
}

// NewService creates a service. Without options it uses a fresh engine, a
// no-op logger and a renderer that encodes nothing.
func NewService(opts ...Option) *Service {
    s := &Service{
        games:  make(map[string]*GameState),
        subs:   make(map[string]map[*subscriber]struct{}),
        render: func(gs GameState) []byte { return nil },
        log:    zap.NewNop(),
    }
    for _, o := range opts {
        o(s)
    }
    if s.engine == nil {
        s.engine = search.NewEngine(search.WithLogger(s.log))
    }
    return s
}

// Engine returns the engine that plays bot seats.
func (s *Service) Engine() *search.Engine { return s.engine }

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if renderer == nil {
        s.render = func(gs GameState) []byte { return nil }
        return
    }
    s.render = renderer
}

// CreateGame creates and registers a new game. Bot seats are filled
// immediately and a bot holding X makes the opening move.
func (s *Service) CreateGame(x, o search.Kind) (*GameState, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    id := uuid.NewString()
    now := time.Now()
    gs := &GameState{ID: id, Game: domain.NewGame(), XKind: x, OKind: o, Created: now, Updated: now}
    if x.IsBot() {
        gs.X = botSeat(x)
    }
    if o.IsBot() {
        gs.O = botSeat(o)
    }
    if err := s.playBotsLocked(gs); err != nil {
        return nil, err
    }
    s.games[id] = gs
    s.log.Info("game created",
        zap.String("game", id),
        zap.Stringer("x", x),
        zap.Stringer("o", o),
    )
    cp := *gs
    return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return nil, false
    }
    cp := *gs
    return &cp, true
}

// Join assigns a free human seat to the player; returns Open for spectators.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return domain.Open, nil, ErrNotFound
    }
    side := gs.Seat(playerID)
    if side == domain.Open {
        if gs.X == "" {
            gs.X = playerID
            side = domain.X
        } else if gs.O == "" {
            gs.O = playerID
            side = domain.O
        }
    }
    gs.Updated = time.Now()
    cp := *gs
    return side, &cp, nil
}

// Play validates seat and turn, applies a move at cell (1..9), lets any bot
// reply, updates timestamps, and broadcasts.
func (s *Service) Play(id, playerID string, cell int) (*GameState, error) {
    s.mu.Lock()
    gs, ok := s.games[id]
    if !ok {
        s.mu.Unlock()
        return nil, ErrNotFound
    }
    if gs.Game.Over {
        s.mu.Unlock()
        return nil, domain.ErrGameOver
    }
    seat := gs.Seat(playerID)
    if seat == domain.Open || gs.Kind(seat).IsBot() {
        s.mu.Unlock()
        return nil, ErrNotAPlayer
    }
    if seat != gs.Game.Turn {
        s.mu.Unlock()
        return nil, ErrNotYourTurn
    }
    if err := gs.Game.Play(cell); err != nil {
        s.mu.Unlock()
        return nil, err
    }
    s.log.Debug("move played",
        zap.String("game", id),
        zap.Stringer("side", seat),
        zap.Int("cell", cell),
    )
    if err := s.playBotsLocked(gs); err != nil {
        s.mu.Unlock()
        return nil, err
    }
    cp, payload, subs := s.snapshotLocked(gs)
    s.mu.Unlock()

    s.fanOut(id, subs, payload)
    return &cp, nil
}

// Rematch resets a finished game for another round with X to move. Only
// seated players may ask for it.
func (s *Service) Rematch(id, playerID string) (*GameState, error) {
    s.mu.Lock()
    gs, ok := s.games[id]
    if !ok {
        s.mu.Unlock()
        return nil, ErrNotFound
    }
    if gs.Seat(playerID) == domain.Open {
        s.mu.Unlock()
        return nil, ErrNotAPlayer
    }
    if !gs.Game.Over {
        s.mu.Unlock()
        return nil, ErrNotOver
    }
    gs.Game.Reset()
    if err := s.playBotsLocked(gs); err != nil {
        s.mu.Unlock()
        return nil, err
    }
    s.log.Info("rematch", zap.String("game", id))
    cp, payload, subs := s.snapshotLocked(gs)
    s.mu.Unlock()

    s.fanOut(id, subs, payload)
    return &cp, nil
}

// playBotsLocked lets bot seats move until a human is to move or the game
// ends. Callers hold s.mu.
func (s *Service) playBotsLocked(gs *GameState) error {
    for !gs.Game.Over {
        kind := gs.Kind(gs.Game.Turn)
        if !kind.IsBot() {
            return nil
        }
        cell, err := s.engine.PickMove(gs.Game.Board, gs.Game.P1Turn(), kind)
        if err != nil {
            return fmt.Errorf("bot %v: %w", kind, err)
        }
        if err := gs.Game.Play(cell); err != nil {
            return fmt.Errorf("bot %v played %d: %w", kind, cell, err)
        }
        s.log.Debug("bot moved",
            zap.String("game", gs.ID),
            zap.Stringer("kind", kind),
            zap.Int("cell", cell),
        )
    }
    if gs.Game.Over {
        s.log.Info("game over",
            zap.String("game", gs.ID),
            zap.Stringer("winner", gs.Game.Winner),
            zap.Int("moves", gs.Game.Moves),
        )
    }
    return nil
}

func (s *Service) snapshotLocked(gs *GameState) (GameState, []byte, map[*subscriber]struct{}) {
    gs.Updated = time.Now()
    cp := *gs
    return cp, s.render(cp), s.copySubsLocked(gs.ID)
}

// fanOut delivers payload; slow subscribers are closed and dropped.
func (s *Service) fanOut(id string, subs map[*subscriber]struct{}, payload []byte) {
    var toDrop []*subscriber
    for sub := range subs {
        select {
        case sub.ch <- payload:
        default:
            sub.close()
            toDrop = append(toDrop, sub)
        }
    }
    if len(toDrop) == 0 {
        return
    }
    s.log.Warn("dropped slow subscribers", zap.String("game", id), zap.Int("count", len(toDrop)))
    s.mu.Lock()
    for _, sub := range toDrop {
        if set, ok := s.subs[id]; ok {
            delete(set, sub)
        }
    }
    s.mu.Unlock()
}

// Subscribe registers a subscriber for an existing game. Returns a channel
// and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.games[id]; !ok {
        return nil, nil, ErrNotFound
    }
    set := s.subs[id]
    if set == nil {
        set = make(map[*subscriber]struct{})
        s.subs[id] = set
    }
    sub := &subscriber{ch: make(chan []byte, 1)}
    set[sub] = struct{}{}

    unsubOnce := &sync.Once{}
    unsub := func() {
        unsubOnce.Do(func() {
            s.mu.Lock()
            if set, ok := s.subs[id]; ok {
                delete(set, sub)
            }
            s.mu.Unlock()
            sub.close()
        })
    }
    go func() {
        <-ctx.Done()
        unsub()
    }()
    return sub.ch, unsub, nil
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
    out := make(map[*subscriber]struct{})
    if set, ok := s.subs[id]; ok {
        for k := range set {
            out[k] = struct{}{}
        }
    }
    return out
}
