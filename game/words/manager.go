package words

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrWordSetNotFound = errors.New("word set not found")
	ErrInvalidWordSet  = errors.New("invalid word set")
)

// DefaultWordSet is loaded as the default when present.
const DefaultWordSet = "classic"

// WordSet is a named list of candidate board words.
type WordSet struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Words       []string `json:"words"`
}

// Info summarizes a word set file.
type Info struct {
	Filename    string `json:"filename"`
	ID          string `json:"id"` // identifier to pass to LoadWordSet
	Name        string `json:"name"`
	Description string `json:"description"`
	WordCount   int    `json:"word_count"`
}

// Manager handles word set loading and caching
type Manager struct {
	dir        string
	defaultSet *WordSet
	sets       map[string]*WordSet
	mu         sync.RWMutex
}

// NewManager creates a new word set manager reading JSON files from dir
func NewManager(dir string) (*Manager, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("word set directory does not exist: %s", dir)
	}

	m := &Manager{
		dir:  dir,
		sets: make(map[string]*WordSet),
	}

	if err := m.loadDefault(); err != nil {
		return nil, fmt.Errorf("failed to load default word set: %w", err)
	}

	return m, nil
}

// LoadWordSet loads a word set by id (file name without extension)
func (m *Manager) LoadWordSet(id string) (*WordSet, error) {
	id = strings.TrimSuffix(id, ".json")
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, ErrWordSetNotFound
	}

	m.mu.RLock()
	if set, ok := m.sets[id]; ok {
		m.mu.RUnlock()
		return set, nil
	}
	m.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(m.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrWordSetNotFound
		}
		return nil, fmt.Errorf("failed to read word set file: %w", err)
	}

	var set WordSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse word set: %w", err)
	}
	if err := Validate(&set); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.sets[id]; ok {
		return cached, nil
	}
	m.sets[id] = &set
	return &set, nil
}

// ListWordSets returns information about all valid word set files
func (m *Manager) ListWordSets() ([]*Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read word set directory: %w", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		set, err := m.LoadWordSet(id)
		if err != nil {
			// Skip invalid sets
			continue
		}

		infos = append(infos, &Info{
			Filename:    entry.Name(),
			ID:          id,
			Name:        set.Name,
			Description: set.Description,
			WordCount:   len(set.Words),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// GetDefault returns the default word set
func (m *Manager) GetDefault() *WordSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultSet
}

// SetDefault sets the default word set by id
func (m *Manager) SetDefault(id string) error {
	set, err := m.LoadWordSet(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultSet = set
	return nil
}

// SaveWordSet validates and writes a word set to disk
func (m *Manager) SaveWordSet(id string, set *WordSet) error {
	if err := Validate(set); err != nil {
		return err
	}
	id = strings.TrimSuffix(id, ".json")
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: bad id %q", ErrInvalidWordSet, id)
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal word set: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, id+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write word set file: %w", err)
	}

	m.mu.Lock()
	m.sets[id] = set
	m.mu.Unlock()

	return nil
}

// RefreshCache drops cached word sets and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.sets = make(map[string]*WordSet)
	m.mu.Unlock()

	return m.loadDefault()
}

// loadDefault picks classic.json, else the first valid file, else a built-in set.
func (m *Manager) loadDefault() error {
	set, err := m.LoadWordSet(DefaultWordSet)
	if err != nil {
		infos, listErr := m.ListWordSets()
		if listErr != nil || len(infos) == 0 {
			set = builtinWordSet()
		} else if set, err = m.LoadWordSet(infos[0].ID); err != nil {
			set = builtinWordSet()
		}
	}

	m.mu.Lock()
	m.defaultSet = set
	m.mu.Unlock()
	return nil
}

// Validate checks that a set has a name and enough distinct words for a board.
func Validate(set *WordSet) error {
	if set == nil {
		return fmt.Errorf("%w: nil", ErrInvalidWordSet)
	}
	if strings.TrimSpace(set.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidWordSet)
	}
	if n := len(distinct(set.Words)); n < BoardWords {
		return fmt.Errorf("%w: need at least %d distinct words, got %d", ErrInvalidWordSet, BoardWords, n)
	}
	return nil
}

// distinct returns trimmed, non-empty words with case-insensitive duplicates removed.
func distinct(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}

func builtinWordSet() *WordSet {
	return &WordSet{
		Name:        "builtin",
		Description: "Minimal built-in word list",
		Words: []string{
			"Apple", "Bank", "Bark", "Bear", "Berlin", "Bolt", "Bridge", "Cap",
			"Castle", "Cell", "Chair", "Check", "Club", "Comet", "Crane", "Crown",
			"Dance", "Diamond", "Dragon", "Drill", "Engine", "Fair", "Fan", "Field",
			"Fire", "Fish", "Glass", "Horse", "Ice", "Jet", "Key", "Knight",
			"Lemon", "Light", "Mars", "Match", "Mint", "Moon", "Night", "Note",
		},
	}
}
