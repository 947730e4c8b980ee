package search

import (
    "errors"
    "fmt"
    "strings"
)

// Kind selects how a seat picks its moves.
type Kind uint8

const (
    Human Kind = iota
    Random
    GreedyWin
    GreedyWinOrBlock
    Optimal
)

// Errors returned by move selection.
var (
    ErrHumanKind   = errors.New("human players choose their own moves")
    ErrNoMoves     = errors.New("no open cells")
    ErrUnknownKind = errors.New("unknown player kind")
    ErrWrongMover  = errors.New("player to move does not match the board")
)

var kindNames = [...]string{
    Human:            "human",
    Random:           "random",
    GreedyWin:        "win",
    GreedyWinOrBlock: "block",
    Optimal:          "optimal",
}

func (k Kind) String() string {
    if int(k) < len(kindNames) {
        return kindNames[k]
    }
    return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsBot reports whether the engine plays for this kind.
func (k Kind) IsBot() bool { return k != Human && int(k) < len(kindNames) }

// ParseKind accepts a kind name or a difficulty digit 1-4.
func ParseKind(s string) (Kind, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "human", "":
        return Human, nil
    case "random", "1":
        return Random, nil
    case "win", "2":
        return GreedyWin, nil
    case "block", "3":
        return GreedyWinOrBlock, nil
    case "optimal", "4":
        return Optimal, nil
    }
    return Human, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
    return []Kind{Human, Random, GreedyWin, GreedyWinOrBlock, Optimal}
}
