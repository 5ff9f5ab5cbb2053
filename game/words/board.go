package words

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/wricardo/mcp-training/codenames/game/engine"
)

// Card distribution for a standard board. Blue always opens, so it holds
// the extra card.
const (
	BlueCards     = 9
	RedCards      = 8
	NeutralCards  = 7
	AssassinCards = 1

	BoardWords = BlueCards + RedCards + NeutralCards + AssassinCards
)

// NewBoard deals a shuffled board from words.
func NewBoard(words []string, rng *rand.Rand) (engine.Board, error) {
	var board engine.Board

	pool := distinct(words)
	if len(pool) < BoardWords {
		return board, fmt.Errorf("%w: need %d distinct words, got %d", ErrInvalidWordSet, BoardWords, len(pool))
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	colors := make([]engine.Color, 0, BoardWords)
	colors = appendN(colors, engine.ColorBlue, BlueCards)
	colors = appendN(colors, engine.ColorRed, RedCards)
	colors = appendN(colors, engine.ColorNeutral, NeutralCards)
	colors = appendN(colors, engine.ColorAssassin, AssassinCards)
	rng.Shuffle(len(colors), func(i, j int) { colors[i], colors[j] = colors[j], colors[i] })

	for i := range board {
		board[i] = engine.Card{Word: pool[i], Color: colors[i]}
	}
	return board, nil
}

// NewKey builds a readable game key such as "lemon-castle-42".
func NewKey(words []string, rng *rand.Rand) string {
	pool := distinct(words)
	if len(pool) < 2 {
		return fmt.Sprintf("game-%04d", rng.Intn(10000))
	}
	i := rng.Intn(len(pool))
	j := rng.Intn(len(pool) - 1)
	if j >= i {
		j++
	}
	return fmt.Sprintf("%s-%s-%02d", slug(pool[i]), slug(pool[j]), rng.Intn(100))
}

func appendN(colors []engine.Color, c engine.Color, n int) []engine.Color {
	for i := 0; i < n; i++ {
		colors = append(colors, c)
	}
	return colors
}

func slug(word string) string {
	return strings.ReplaceAll(strings.ToLower(word), " ", "-")
}
