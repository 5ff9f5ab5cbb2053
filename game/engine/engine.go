package engine

import "errors"

var (
	ErrInvalidBoard   = errors.New("invalid board")
	ErrInvalidReveals = errors.New("invalid reveal flags")
)

// Game is the authoritative state of one board. It is not safe for
// concurrent use; the owning session serializes access.
type Game struct {
	board       Board
	revealed    Reveals
	currentTeam Team
	outcome     Outcome
}

// NewGame starts a game on board with every card hidden and blue to play.
func NewGame(board Board) *Game {
	g := &Game{
		board:       board,
		currentTeam: TeamBlue,
	}
	g.derive()
	return g
}

// Reveal exposes the card at index and advances the turn.
//
// applied is false when the reveal was rejected: the game is over, index is
// out of range, or the card is already face up. completed is true only for
// the reveal that moved the game into PhaseOver.
func (g *Game) Reveal(index int) (applied, completed bool) {
	if g.outcome.GameOver || index < 0 || index >= BoardSize || g.revealed[index] {
		return false, false
	}

	g.revealed[index] = true
	if g.board[index].Color != g.currentTeam.Color() {
		g.currentTeam = g.currentTeam.Other()
	}

	g.derive()
	return true, g.outcome.GameOver
}

// Merge folds reveals known by a rejoining participant into the game.
// Flags are only ever added, and the turn stays with the server's team.
func (g *Game) Merge(incoming Reveals) (changed, completed bool) {
	merged := g.revealed.Or(incoming)
	if merged == g.revealed {
		return false, false
	}

	wasOver := g.outcome.GameOver
	g.revealed = merged
	g.derive()
	return true, !wasOver && g.outcome.GameOver
}

// Restore seeds a freshly created game from a saved snapshot. Unlike Merge,
// the snapshot's team is trusted because there is no server view yet.
func (g *Game) Restore(saved SavedState) (completed bool, err error) {
	reveals, err := ParseReveals(saved.Revealed)
	if err != nil {
		return false, err
	}
	if saved.CurrentTeam.Valid() {
		g.currentTeam = saved.CurrentTeam
	}
	_, completed = g.Merge(reveals)
	return completed, nil
}

// Phase reports the turn state machine position.
func (g *Game) Phase() Phase {
	switch {
	case g.outcome.GameOver:
		return PhaseOver
	case g.currentTeam == TeamRed:
		return PhaseRedTurn
	default:
		return PhaseBlueTurn
	}
}

// CurrentTeam returns the team whose turn it is.
func (g *Game) CurrentTeam() Team {
	return g.currentTeam
}

// Revealed returns a copy of the reveal flags.
func (g *Game) Revealed() Reveals {
	return g.revealed
}

// Outcome returns the derived fields.
func (g *Game) Outcome() Outcome {
	return g.outcome
}

// IsGameOver reports whether the game has reached PhaseOver.
func (g *Game) IsGameOver() bool {
	return g.outcome.GameOver
}

// State returns a snapshot suitable for broadcasting.
func (g *Game) State() *GameState {
	return &GameState{
		Board:           g.board,
		Revealed:        g.revealed,
		CurrentTeam:     g.currentTeam,
		RemainingCounts: g.outcome.Remaining,
		GameOver:        g.outcome.GameOver,
		Winner:          g.outcome.Winner,
	}
}

func (g *Game) derive() {
	g.outcome = Derive(g.board, g.revealed)
}
