package domain

import "errors"

// Game holds the current state of a Tic-Tac-Toe match.
type Game struct {
    Board  Board
    Turn   Cell
    Winner Cell
    Over   bool
    Moves  int
}

// ErrGameOver is returned when a move is attempted after the match ended.
var ErrGameOver = errors.New("game over")

// NewGame returns a new game with X to move.
func NewGame() Game {
    return Game{Turn: X}
}

// P1Turn reports whether player 1 (X) is to move.
func (g Game) P1Turn() bool { return g.Turn == X }

// Play attempts to play the current turn at cell index i (1..9).
func (g *Game) Play(i int) error {
    if g.Over {
        return ErrGameOver
    }
    if err := g.Board.Set(i, g.P1Turn()); err != nil {
        return err
    }
    g.Moves++

    // Check for a win
    if w, ok := g.Board.Winner(); ok {
        g.Winner = w
        g.Over = true
        return nil
    }

    // Check for draw
    if g.Board.IsFull() {
        g.Winner = Open
        g.Over = true
        return nil
    }

    g.Turn = g.Turn.Opponent()
    return nil
}

// Reset clears the board for a rematch with X to move.
func (g *Game) Reset() {
    *g = NewGame()
}
