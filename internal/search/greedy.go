package search

import "github.com/jaminalder/tic-tac-toe-solver/internal/domain"

// lines are scanned rows first, then columns, then diagonals.
var lines = [8][3]int{
    {1, 2, 3}, {4, 5, 6}, {7, 8, 9},
    {1, 4, 7}, {2, 5, 8}, {3, 6, 9},
    {1, 5, 9}, {3, 5, 7},
}

// candidate is the open cell of a line whose other two cells hold owner.
type candidate struct {
    cell  int
    owner domain.Cell
}

func candidates(b domain.Board) []candidate {
    var out []candidate
    for _, ln := range lines {
        var open, filled []int
        for _, i := range ln {
            if b[i-1] == domain.Open {
                open = append(open, i)
            } else {
                filled = append(filled, i)
            }
        }
        if len(open) != 1 {
            continue
        }
        if owner := b[filled[0]-1]; owner == b[filled[1]-1] {
            out = append(out, candidate{cell: open[0], owner: owner})
        }
    }
    return out
}

func firstOwnedBy(cs []candidate, owner domain.Cell) (int, bool) {
    for _, c := range cs {
        if c.owner == owner {
            return c.cell, true
        }
    }
    return 0, false
}

// pickWinning completes one of the mover's lines if possible.
func (e *Engine) pickWinning(b domain.Board, p1Turn bool) int {
    if cell, ok := firstOwnedBy(candidates(b), domain.Player(p1Turn)); ok {
        return cell
    }
    return e.pickRandom(b)
}

// pickWinningOrBlock prefers a win, then denies the opponent's line.
func (e *Engine) pickWinningOrBlock(b domain.Board, p1Turn bool) int {
    me := domain.Player(p1Turn)
    cs := candidates(b)
    if cell, ok := firstOwnedBy(cs, me); ok {
        return cell
    }
    if cell, ok := firstOwnedBy(cs, me.Opponent()); ok {
        return cell
    }
    return e.pickRandom(b)
}
