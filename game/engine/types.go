package engine

import (
	"encoding/json"
	"fmt"
)

// BoardSize is the number of cards on every board.
const BoardSize = 25

// Color is the hidden identity of a card.
type Color string

const (
	ColorBlue     Color = "blue"
	ColorRed      Color = "red"
	ColorNeutral  Color = "neutral"
	ColorAssassin Color = "assassin"
)

// Valid reports whether c is one of the four card colors.
func (c Color) Valid() bool {
	switch c {
	case ColorBlue, ColorRed, ColorNeutral, ColorAssassin:
		return true
	}
	return false
}

// Team is one of the two playing sides.
type Team string

const (
	TeamBlue Team = "blue"
	TeamRed  Team = "red"
)

// Valid reports whether t is blue or red.
func (t Team) Valid() bool {
	return t == TeamBlue || t == TeamRed
}

// Color returns the card color owned by the team.
func (t Team) Color() Color {
	if t == TeamRed {
		return ColorRed
	}
	return ColorBlue
}

// Other returns the opposing team.
func (t Team) Other() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// Winner identifies how a game ended. The zero value means nobody has won.
type Winner string

const (
	WinnerNone     Winner = ""
	WinnerBlue     Winner = "blue"
	WinnerRed      Winner = "red"
	WinnerAssassin Winner = "assassin"
)

// Phase is the turn state machine position of a game.
type Phase string

const (
	PhaseBlueTurn Phase = "blue_turn"
	PhaseRedTurn  Phase = "red_turn"
	PhaseOver     Phase = "over"
)

// Card is a single board entry.
type Card struct {
	Word  string `json:"word"`
	Color Color  `json:"color"`
}

// Board is the fixed, immutable layout of a game.
type Board [BoardSize]Card

// Reveals holds one flag per board position.
type Reveals [BoardSize]bool

// ParseBoard converts wire cards into a Board, rejecting anything that is not
// exactly BoardSize entries of known colors.
func ParseBoard(cards []Card) (Board, error) {
	var board Board
	if len(cards) != BoardSize {
		return board, fmt.Errorf("%w: expected %d cards, got %d", ErrInvalidBoard, BoardSize, len(cards))
	}
	for i, card := range cards {
		if !card.Color.Valid() {
			return board, fmt.Errorf("%w: card %d has unknown color %q", ErrInvalidBoard, i, card.Color)
		}
		board[i] = card
	}
	return board, nil
}

// ParseReveals converts wire flags into Reveals.
func ParseReveals(flags []bool) (Reveals, error) {
	var reveals Reveals
	if len(flags) != BoardSize {
		return reveals, fmt.Errorf("%w: expected %d flags, got %d", ErrInvalidReveals, BoardSize, len(flags))
	}
	copy(reveals[:], flags)
	return reveals, nil
}

// Or returns the element-wise union of r and other.
func (r Reveals) Or(other Reveals) Reveals {
	for i := range r {
		r[i] = r[i] || other[i]
	}
	return r
}

// RemainingCounts is the number of unrevealed team cards.
type RemainingCounts struct {
	Blue int `json:"blue"`
	Red  int `json:"red"`
}

// Outcome is everything derived from a board and its reveal flags.
type Outcome struct {
	Remaining RemainingCounts
	GameOver  bool
	Winner    Winner
}

// SavedState is a participant's local copy of a game carried on (re)join.
type SavedState struct {
	Revealed    []bool `json:"revealed"`
	CurrentTeam Team   `json:"currentTeam,omitempty"`
}

// GameState is the full snapshot broadcast to participants.
type GameState struct {
	Board           Board           `json:"board"`
	Revealed        Reveals         `json:"revealed"`
	CurrentTeam     Team            `json:"currentTeam"`
	RemainingCounts RemainingCounts `json:"remainingCounts"`
	GameOver        bool            `json:"gameOver"`
	Winner          Winner          `json:"winner,omitempty"`
}

// UnmarshalJSON accepts a board of any length and validates it.
func (b *Board) UnmarshalJSON(data []byte) error {
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return err
	}
	board, err := ParseBoard(cards)
	if err != nil {
		return err
	}
	*b = board
	return nil
}
