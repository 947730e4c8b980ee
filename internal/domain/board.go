package domain

import (
    "errors"
    "strconv"
    "strings"
)

// Cell represents a board cell state.
type Cell uint8

const (
    Open Cell = iota
    X
    O
)

// Errors returned by board operations.
var (
    ErrInvalidIndex = errors.New("number selected must be between 1 and 9")
    ErrOccupied     = errors.New("cell already occupied")
)

// Player returns the token of player 1 (X) when first is set, otherwise O.
func Player(first bool) Cell {
    if first {
        return X
    }
    return O
}

// Opponent returns the other player's token. Open has no opponent.
func (c Cell) Opponent() Cell {
    switch c {
    case X:
        return O
    case O:
        return X
    default:
        return Open
    }
}

func (c Cell) String() string {
    switch c {
    case X:
        return "X"
    case O:
        return "O"
    default:
        return ""
    }
}

// Digit is the cell's symbol in a state key.
func (c Cell) Digit() byte {
    switch c {
    case X:
        return '1'
    case O:
        return '2'
    default:
        return '0'
    }
}

// Board is a fixed 3x3 board stored row-major. Open cells are addressed by
// their 1-based position, so the zero value is an empty board.
type Board [9]Cell

// NewBoard returns an empty board.
func NewBoard() Board {
    return Board{}
}

// ParseBoard reads nine cells in row-major order. X and O are occupied,
// anything in "0123456789._-" is open.
func ParseBoard(s string) (Board, error) {
    var b Board
    if len(s) != len(b) {
        return b, errors.New("board must have 9 cells")
    }
    for i := 0; i < len(s); i++ {
        switch ch := s[i]; {
        case ch == 'X' || ch == 'x':
            b[i] = X
        case ch == 'O' || ch == 'o':
            b[i] = O
        case strings.IndexByte("0123456789._-", ch) >= 0:
            b[i] = Open
        default:
            return Board{}, errors.New("invalid cell " + strconv.Quote(string(ch)))
        }
    }
    return b, nil
}

func checkIndex(i int) error {
    if i < 1 || i > 9 {
        return ErrInvalidIndex
    }
    return nil
}

// OpenSpaces lists the indices of open cells in ascending order.
func (b Board) OpenSpaces() []int {
    open := make([]int, 0, len(b))
    for i, c := range b {
        if c == Open {
            open = append(open, i+1)
        }
    }
    return open
}

// IsFull reports whether no open cell remains.
func (b Board) IsFull() bool {
    return len(b.OpenSpaces()) == 0
}

// Cell returns the occupant of cell i, or Open if nobody has played there.
func (b Board) Cell(i int) (Cell, error) {
    if err := checkIndex(i); err != nil {
        return Open, err
    }
    return b[i-1], nil
}

// Set places the token of player 1 (first) or player 2 at cell i.
func (b *Board) Set(i int, first bool) error {
    c, err := b.Cell(i)
    if err != nil {
        return err
    }
    if c != Open {
        return ErrOccupied
    }
    b[i-1] = Player(first)
    return nil
}

// ToMove returns the player whose turn it is, given that X moves first.
// ok is false when the token counts cannot arise in play.
func (b Board) ToMove() (Cell, bool) {
    var x, o int
    for _, c := range b {
        switch c {
        case X:
            x++
        case O:
            o++
        }
    }
    switch x - o {
    case 0:
        return X, true
    case 1:
        return O, true
    }
    return Open, false
}

// Reset clears every cell.
func (b *Board) Reset() {
    *b = Board{}
}

func (b Board) at(r, c int) Cell { return b[r*3+c] }

// Winner returns the token holding a full line. Diagonals are checked first,
// then row i and column i for each i.
func (b Board) Winner() (Cell, bool) {
    centre := b.at(1, 1)
    if centre != Open {
        if (b.at(0, 0) == centre && b.at(2, 2) == centre) ||
            (b.at(0, 2) == centre && b.at(2, 0) == centre) {
            return centre, true
        }
    }
    for i := 0; i < 3; i++ {
        // (i, i) is shared by row i and column i
        cell := b.at(i, i)
        if cell == Open {
            continue
        }
        if b.at(i, 0) == cell && b.at(i, 1) == cell && b.at(i, 2) == cell {
            return cell, true
        }
        if b.at(0, i) == cell && b.at(1, i) == cell && b.at(2, i) == cell {
            return cell, true
        }
    }
    return Open, false
}

// FlipV reverses the row order.
func (b Board) FlipV() Board {
    var out Board
    for r := 0; r < 3; r++ {
        for c := 0; c < 3; c++ {
            out[r*3+c] = b.at(2-r, c)
        }
    }
    return out
}

// FlipH reverses each row.
func (b Board) FlipH() Board {
    var out Board
    for r := 0; r < 3; r++ {
        for c := 0; c < 3; c++ {
            out[r*3+c] = b.at(r, 2-c)
        }
    }
    return out
}

// Transpose swaps rows and columns.
func (b Board) Transpose() Board {
    var out Board
    for r := 0; r < 3; r++ {
        for c := 0; c < 3; c++ {
            out[r*3+c] = b.at(c, r)
        }
    }
    return out
}

// Symmetries returns the board under all 8 dihedral transforms, identity first.
func (b Board) Symmetries() [8]Board {
    return [8]Board{
        b,
        b.FlipV(),
        b.FlipH(),
        b.Transpose().FlipV(), // rotate left
        b.FlipH().FlipV(),     // rotate 180
        b.Transpose().FlipH(), // rotate right
        b.Transpose(),
        b.Transpose().FlipV().FlipH(),
    }
}

func (b Board) digits() string {
    var buf [9]byte
    for i, c := range b {
        buf[i] = c.Digit()
    }
    return string(buf[:])
}

// StateKey encodes the board as 0/1/2 digits under each symmetry and returns
// the smallest string, so equivalent positions share a key.
func (b Board) StateKey() string {
    syms := b.Symmetries()
    key := syms[0].digits()
    for _, s := range syms[1:] {
        if d := s.digits(); d < key {
            key = d
        }
    }
    return key
}

// String renders the grid with open cells shown as their index.
func (b Board) String() string {
    var sb strings.Builder
    for r := 0; r < 3; r++ {
        if r > 0 {
            sb.WriteString("-+-+-\n")
        }
        for c := 0; c < 3; c++ {
            if c > 0 {
                sb.WriteByte('|')
            }
            sb.WriteString(b.Label(r*3 + c + 1))
        }
        sb.WriteByte('\n')
    }
    return sb.String()
}

// Label is what a cell displays: its token, or its index while open.
func (b Board) Label(i int) string {
    c, err := b.Cell(i)
    if err != nil {
        return ""
    }
    if c == Open {
        return strconv.Itoa(i)
    }
    return c.String()
}
