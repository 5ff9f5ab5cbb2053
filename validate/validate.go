// Command validate checks the word set JSON files in a directory. It checks:
//   - JSON structure and required fields
//   - At least 25 distinct words so a full board can be dealt
//   - No empty entries or case-insensitive duplicates
//   - No leading or trailing whitespace
//   - Word length that fits a card
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/wricardo/mcp-training/codenames/game/words"
)

// maxWordLength is the longest word that still fits on a card.
const maxWordLength = 16

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages holds informational lines; otherwise it
// accumulates the problems that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// validateWordSet loads and validates a single word set file.
func validateWordSet(filePath string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var set words.WordSet
	if err := json.Unmarshal(data, &set); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := words.Validate(&set); err != nil {
		result.fail("%v", err)
	}

	seen := make(map[string]int, len(set.Words))
	for i, w := range set.Words {
		switch {
		case strings.TrimSpace(w) == "":
			result.fail("Empty word at position %d", i+1)
			continue
		case strings.TrimSpace(w) != w:
			result.fail("Word %q at position %d has surrounding whitespace", w, i+1)
		}
		if n := utf8.RuneCountInString(w); n > maxWordLength {
			result.fail("Word %q is too long (%d > %d)", w, n, maxWordLength)
		}
		key := strings.ToLower(strings.TrimSpace(w))
		if first, ok := seen[key]; ok {
			result.fail("Duplicate word %q at positions %d and %d", w, first, i+1)
			continue
		}
		seen[key] = i + 1
	}

	if result.Valid {
		result.Messages = append(result.Messages,
			fmt.Sprintf("✓ Name: %s", set.Name),
			fmt.Sprintf("✓ Words: %d", len(set.Words)),
			fmt.Sprintf("✓ Boards: %d words per board", words.BoardWords))
	}
	return result
}

// validateDir validates every *.json file in dir. It reports whether all of
// them are valid.
func validateDir(dir string) ([]ValidationResult, bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, false, err
	}
	if len(files) == 0 {
		return nil, false, fmt.Errorf("no word set files in %s", dir)
	}

	allValid := true
	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		result := validateWordSet(file)
		allValid = allValid && result.Valid
		results = append(results, result)
	}
	return results, allValid, nil
}

// main validates the word sets in the directory given as the first argument
// (default ../wordsets), printing a concise report and exiting with non-zero
// status if any are invalid.
func main() {
	dir := "../wordsets"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	results, allValid, err := validateDir(dir)
	if err != nil {
		fmt.Printf("Error finding word set files: %v\n", err)
		os.Exit(1)
	}

	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Messages {
				fmt.Println("  " + info)
			}
			continue
		}
		fmt.Println("❌ INVALID")
		for _, msg := range result.Messages {
			fmt.Println("  ❌ " + msg)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All word sets are valid!")
	} else {
		fmt.Println("❌ Some word sets have errors")
		os.Exit(1)
	}
}
