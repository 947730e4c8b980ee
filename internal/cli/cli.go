package cli

import (
    "bufio"
    "errors"
    "fmt"
    "io"
    "strconv"
    "strings"

    "github.com/jaminalder/tic-tac-toe-solver/internal/domain"
    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
    "github.com/muesli/termenv"
    "go.uber.org/zap"
)

// Game runs tic-tac-toe sessions on a terminal.
type Game struct {
    in     *bufio.Reader
    out    *termenv.Output
    engine *search.Engine
    log    *zap.Logger

    game  domain.Game
    kinds map[domain.Cell]search.Kind
    note  string
}

// Option configures a Game.
type Option func(*Game)

// WithEngine sets the engine used for bot seats.
func WithEngine(e *search.Engine) Option {
    return func(g *Game) {
        if e != nil {
            g.engine = e
        }
    }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
    return func(g *Game) {
        if l != nil {
            g.log = l
        }
    }
}

// WithOutput replaces the terminal output, for example to force a colour
// profile.
func WithOutput(o *termenv.Output) Option {
    return func(g *Game) {
        if o != nil {
            g.out = o
        }
    }
}

// New returns a Game reading answers from r and drawing to w.
func New(r io.Reader, w io.Writer, opts ...Option) *Game {
    g := &Game{
        in:    bufio.NewReader(r),
        out:   termenv.NewOutput(w),
        log:   zap.NewNop(),
        game:  domain.NewGame(),
        kinds: map[domain.Cell]search.Kind{domain.X: search.Human, domain.O: search.Human},
    }
    for _, o := range opts {
        o(g)
    }
    if g.engine == nil {
        g.engine = search.NewEngine(search.WithLogger(g.log))
    }
    return g
}

// Run plays rounds until the player declines a rematch or input ends.
func (g *Game) Run() error {
    err := g.run()
    if errors.Is(err, io.EOF) {
        return nil
    }
    return err
}

func (g *Game) run() error {
    g.println("Welcome to Tic Tac Toe!\n")
    g.println("Press Enter to start")
    if _, err := g.readLine(); err != nil {
        return err
    }
    for {
        for _, side := range []domain.Cell{domain.X, domain.O} {
            k, err := g.chooseKind(side)
            if err != nil {
                return err
            }
            g.kinds[side] = k
        }
        if err := g.playRound(); err != nil {
            return err
        }
        again, err := g.yesNo("Play again?")
        if err != nil || !again {
            return err
        }
        g.game.Reset()
    }
}

func (g *Game) playRound() error {
    g.log.Debug("round started",
        zap.Stringer("x", g.kinds[domain.X]),
        zap.Stringer("o", g.kinds[domain.O]),
    )
    for !g.game.Over {
        g.render()
        cell, err := g.nextMove()
        if err != nil {
            return err
        }
        if err := g.game.Play(cell); err != nil {
            g.note = err.Error()
            continue
        }
    }
    g.render()
    if g.game.Winner != domain.Open {
        g.println(fmt.Sprintf("Player %s wins!", g.styled(g.game.Winner, g.game.Winner.String())))
    } else {
        g.println("draw!")
    }
    g.log.Info("round over", zap.Stringer("winner", g.game.Winner), zap.Int("moves", g.game.Moves))
    return nil
}

func (g *Game) nextMove() (int, error) {
    turn := g.game.Turn
    kind := g.kinds[turn]
    if kind == search.Human {
        return g.askCell(turn)
    }
    cell, err := g.engine.PickMove(g.game.Board, g.game.P1Turn(), kind)
    if err != nil {
        return 0, fmt.Errorf("bot %v: %w", kind, err)
    }
    return cell, nil
}

// askCell prompts until the answer is a number from 1 to 9. Occupied cells
// are left for Game.Play to reject.
func (g *Game) askCell(side domain.Cell) (int, error) {
    for {
        g.println(fmt.Sprintf("Player %s, please select an empty cell 1-9: ", side))
        line, err := g.readLine()
        if err != nil {
            return 0, err
        }
        if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= 9 {
            return n, nil
        }
    }
}

func (g *Game) chooseKind(side domain.Cell) (search.Kind, error) {
    human, err := g.yesNo(fmt.Sprintf("Player %s human?", side))
    if err != nil || human {
        return search.Human, err
    }
    for {
        g.println("Select AI difficulty (1-4): ")
        line, err := g.readLine()
        if err != nil {
            return search.Human, err
        }
        if _, err := strconv.Atoi(line); err != nil {
            continue
        }
        if k, err := search.ParseKind(line); err == nil && k.IsBot() {
            return k, nil
        }
    }
}

func (g *Game) yesNo(msg string) (bool, error) {
    for {
        g.println(msg + " Y/N: ")
        line, err := g.readLine()
        if err != nil {
            return false, err
        }
        switch strings.ToLower(line) {
        case "y", "yes":
            return true, nil
        case "n", "no":
            return false, nil
        }
        g.println("Invalid input! ")
    }
}

// readLine returns the next trimmed line. A final line without a newline is
// still returned; io.EOF is reported only once input is exhausted.
func (g *Game) readLine() (string, error) {
    line, err := g.in.ReadString('\n')
    if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
        return "", err
    }
    return strings.TrimSpace(line), nil
}

func (g *Game) render() {
    g.out.ClearScreen()
    g.println(g.board())
    if g.note != "" {
        g.println(g.out.String(g.note).Bold().String())
        g.note = ""
    }
}

// board draws the grid like domain.Board.String with coloured tokens.
func (g *Game) board() string {
    var sb strings.Builder
    for r := 0; r < 3; r++ {
        if r > 0 {
            sb.WriteString("-+-+-\n")
        }
        for c := 0; c < 3; c++ {
            if c > 0 {
                sb.WriteByte('|')
            }
            i := r*3 + c + 1
            cell, _ := g.game.Board.Cell(i)
            sb.WriteString(g.styled(cell, g.game.Board.Label(i)))
        }
        if r < 2 {
            sb.WriteByte('\n')
        }
    }
    return sb.String()
}

func (g *Game) styled(c domain.Cell, s string) string {
    st := g.out.String(s)
    switch c {
    case domain.X:
        st = st.Foreground(g.out.Color("1")).Bold()
    case domain.O:
        st = st.Foreground(g.out.Color("4")).Bold()
    default:
        st = st.Faint()
    }
    return st.String()
}

func (g *Game) println(s string) {
    _, _ = fmt.Fprintln(g.out, s)
}
