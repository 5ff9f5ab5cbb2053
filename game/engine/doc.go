// Package engine provides the core game logic for Codenames sessions.
//
// The engine package implements:
//   - Derivation of remaining cards, game over and winner from reveal flags
//   - The turn state machine applied on every reveal
//   - Merging reveal snapshots carried by reconnecting participants
//
// Core Types:
//
// Game holds the authoritative board, reveal flags and current team of one
// session. Derive is the pure function every mutation funnels through, so
// the derived fields in GameState can never drift from the reveal flags.
//
// Usage:
//
//	board, err := engine.ParseBoard(cards)
//	if err != nil {
//		return err
//	}
//
//	game := engine.NewGame(board)
//	applied, completed := game.Reveal(4)
//	state := game.State()
//
// Game Rules:
//
// Blue always opens. Revealing a card of your own color keeps the turn;
// neutral cards, the opponent's cards and the assassin pass it. Revealing
// the assassin ends the game immediately, otherwise the first team with no
// hidden cards left wins. Reveals are one-way: nothing ever hides a card
// again, and a finished game accepts no further reveals.
package engine
