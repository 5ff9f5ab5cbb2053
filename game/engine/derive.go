package engine

// Derive computes remaining counts and the winner from raw reveal data.
//
// Precedence is fixed: a revealed assassin wins over everything, then blue
// exhaustion, then red exhaustion. The result never depends on how the
// reveals were reached, so callers recompute it after every change rather
// than updating it incrementally.
func Derive(board Board, revealed Reveals) Outcome {
	var out Outcome
	assassinRevealed := false

	for i, card := range board {
		switch card.Color {
		case ColorBlue:
			if !revealed[i] {
				out.Remaining.Blue++
			}
		case ColorRed:
			if !revealed[i] {
				out.Remaining.Red++
			}
		case ColorAssassin:
			if revealed[i] {
				assassinRevealed = true
			}
		}
	}

	switch {
	case assassinRevealed:
		out.Winner = WinnerAssassin
	case out.Remaining.Blue == 0:
		out.Winner = WinnerBlue
	case out.Remaining.Red == 0:
		out.Winner = WinnerRed
	}
	out.GameOver = out.Winner != WinnerNone

	return out
}
