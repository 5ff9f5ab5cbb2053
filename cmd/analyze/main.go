// Command analyze prints quick, human-readable heuristics about the word sets
// in the project's wordsets directory. It summarizes word counts and lengths,
// deals sample boards to check the color split, estimates how often generated
// game keys collide, and highlights words shared between sets.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/codenames/game/engine"
	"github.com/wricardo/mcp-training/codenames/game/words"
)

// Analysis holds the numbers reported for one word set.
type Analysis struct {
	ID          string
	Name        string
	Words       int
	LongestWord string
	AvgLength   float64

	Deals         int
	ColorCounts   map[engine.Color]int // totals over all dealt boards
	NeverDealt    int
	KeyCollisions int
	KeysGenerated int
}

func main() {
	dir := flag.String("dir", "wordsets", "word set directory")
	deals := flag.Int("deals", 1000, "boards to deal per word set")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	manager, err := words.NewManager(*dir)
	if err != nil {
		fmt.Printf("Error opening word sets: %v\n", err)
		return
	}
	infos, err := manager.ListWordSets()
	if err != nil {
		fmt.Printf("Error listing word sets: %v\n", err)
		return
	}

	sets := make(map[string]*words.WordSet, len(infos))
	for _, info := range infos {
		fmt.Printf("\n=== Analyzing %s ===\n", info.Filename)
		set, err := manager.LoadWordSet(info.ID)
		if err != nil {
			fmt.Printf("Error loading word set: %v\n", err)
			continue
		}
		sets[info.ID] = set
		printAnalysis(analyze(info.ID, set, *deals, rand.New(rand.NewSource(*seed))))
	}

	printOverlaps(sets)
}

// analyze deals n boards and n keys from set.
func analyze(id string, set *words.WordSet, n int, rng *rand.Rand) Analysis {
	a := Analysis{
		ID:          id,
		Name:        set.Name,
		Words:       len(set.Words),
		ColorCounts: make(map[engine.Color]int),
	}

	total := 0
	for _, w := range set.Words {
		total += len(w)
		if len(w) > len(a.LongestWord) {
			a.LongestWord = w
		}
	}
	if a.Words > 0 {
		a.AvgLength = float64(total) / float64(a.Words)
	}

	dealt := make(map[string]bool, len(set.Words))
	keys := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		board, err := words.NewBoard(set.Words, rng)
		if err != nil {
			break
		}
		a.Deals++
		for _, card := range board {
			a.ColorCounts[card.Color]++
			dealt[strings.ToLower(card.Word)] = true
		}

		key := words.NewKey(set.Words, rng)
		a.KeysGenerated++
		if keys[key] {
			a.KeyCollisions++
		}
		keys[key] = true
	}

	seen := make(map[string]bool, len(set.Words))
	for _, w := range set.Words {
		k := strings.ToLower(strings.TrimSpace(w))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if !dealt[k] {
			a.NeverDealt++
		}
	}
	return a
}

func printAnalysis(a Analysis) {
	fmt.Printf("Name: %s\n", a.Name)
	fmt.Printf("Words: %d (avg length %.1f, longest %q)\n", a.Words, a.AvgLength, a.LongestWord)

	if a.Deals == 0 {
		fmt.Printf("⚠️  CRITICAL: cannot deal a board from this set\n")
		return
	}

	expected := map[engine.Color]int{
		engine.ColorBlue:     words.BlueCards,
		engine.ColorRed:      words.RedCards,
		engine.ColorNeutral:  words.NeutralCards,
		engine.ColorAssassin: words.AssassinCards,
	}
	balanced := true
	for color, per := range expected {
		if a.ColorCounts[color] != per*a.Deals {
			balanced = false
			fmt.Printf("⚠️  WARNING: %s dealt %d times over %d boards, expected %d\n",
				color, a.ColorCounts[color], a.Deals, per*a.Deals)
		}
	}
	if balanced {
		fmt.Printf("✅ %d boards dealt with a %d/%d/%d/%d split\n", a.Deals,
			words.BlueCards, words.RedCards, words.NeutralCards, words.AssassinCards)
	}

	if a.NeverDealt > 0 {
		fmt.Printf("⚠️  WARNING: %d words never appeared in %d boards\n", a.NeverDealt, a.Deals)
	} else {
		fmt.Printf("✅ Every word appeared on at least one board\n")
	}

	rate := float64(a.KeyCollisions) / float64(a.KeysGenerated) * 100
	fmt.Printf("Key collisions: %d of %d (%.2f%%)\n", a.KeyCollisions, a.KeysGenerated, rate)
}

// overlap returns the lower-cased words present in both sets, sorted.
func overlap(a, b *words.WordSet) []string {
	in := make(map[string]bool, len(a.Words))
	for _, w := range a.Words {
		in[strings.ToLower(strings.TrimSpace(w))] = true
	}
	var shared []string
	seen := make(map[string]bool)
	for _, w := range b.Words {
		k := strings.ToLower(strings.TrimSpace(w))
		if in[k] && !seen[k] {
			seen[k] = true
			shared = append(shared, k)
		}
	}
	sort.Strings(shared)
	return shared
}

func printOverlaps(sets map[string]*words.WordSet) {
	ids := make([]string, 0, len(sets))
	for id := range sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("\n=== Overlaps ===\n")
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			shared := overlap(sets[ids[i]], sets[ids[j]])
			if len(shared) == 0 {
				continue
			}
			fmt.Printf("%s / %s: %d shared", ids[i], ids[j], len(shared))
			if len(shared) <= 5 {
				fmt.Printf(" (%s)", strings.Join(shared, ", "))
			}
			fmt.Println()
		}
	}
}
