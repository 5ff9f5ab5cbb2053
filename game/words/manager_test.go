package words

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func createValidWordSet(name string) *WordSet {
	set := &WordSet{Name: name, Description: "test words"}
	for i := 0; i < 30; i++ {
		set.Words = append(set.Words, fmt.Sprintf("word%02d", i))
	}
	return set
}

func writeWordSetFile(t *testing.T, dir, id string, set *WordSet) {
	t.Helper()
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal word set: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write word set: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for missing directory")
		}
	})

	t.Run("empty directory uses builtin", func(t *testing.T) {
		m, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if m.GetDefault() == nil || m.GetDefault().Name != "builtin" {
			t.Errorf("Expected builtin default, got %+v", m.GetDefault())
		}
		if err := Validate(m.GetDefault()); err != nil {
			t.Errorf("Builtin set must be valid: %v", err)
		}
	})

	t.Run("prefers classic", func(t *testing.T) {
		dir := t.TempDir()
		writeWordSetFile(t, dir, "aaa", createValidWordSet("AAA"))
		writeWordSetFile(t, dir, DefaultWordSet, createValidWordSet("Classic"))

		m, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if m.GetDefault().Name != "Classic" {
			t.Errorf("Expected Classic default, got %s", m.GetDefault().Name)
		}
	})

	t.Run("falls back to first valid", func(t *testing.T) {
		dir := t.TempDir()
		writeWordSetFile(t, dir, "zoo", createValidWordSet("Zoo"))

		m, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if m.GetDefault().Name != "Zoo" {
			t.Errorf("Expected Zoo default, got %s", m.GetDefault().Name)
		}
	})
}

func TestManager_LoadWordSet(t *testing.T) {
	dir := t.TempDir()
	writeWordSetFile(t, dir, "good", createValidWordSet("Good"))
	writeWordSetFile(t, dir, "short", &WordSet{Name: "Short", Words: []string{"a", "b"}})
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		id      string
		wantErr error
	}{
		{"good", nil},
		{"good.json", nil},
		{"missing", ErrWordSetNotFound},
		{"../good", ErrWordSetNotFound},
		{"short", ErrInvalidWordSet},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			set, err := m.LoadWordSet(tt.id)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if set.Name != "Good" {
					t.Errorf("Expected Good, got %s", set.Name)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := m.LoadWordSet("broken"); err == nil {
		t.Error("Expected parse error for broken file")
	}

	first, _ := m.LoadWordSet("good")
	second, _ := m.LoadWordSet("good")
	if first != second {
		t.Error("Expected cached instance on second load")
	}
}

func TestManager_ListAndSave(t *testing.T) {
	dir := t.TempDir()
	writeWordSetFile(t, dir, "beta", createValidWordSet("Beta"))
	writeWordSetFile(t, dir, "short", &WordSet{Name: "Short", Words: []string{"a"}})

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := m.SaveWordSet("alpha", createValidWordSet("Alpha")); err != nil {
		t.Fatalf("Failed to save word set: %v", err)
	}
	if err := m.SaveWordSet("bad", &WordSet{Name: "Bad"}); !errors.Is(err, ErrInvalidWordSet) {
		t.Errorf("Expected ErrInvalidWordSet, got %v", err)
	}

	infos, err := m.ListWordSets()
	if err != nil {
		t.Fatalf("Failed to list word sets: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 valid sets, got %d", len(infos))
	}
	if infos[0].ID != "alpha" || infos[1].ID != "beta" {
		t.Errorf("Expected sorted [alpha beta], got [%s %s]", infos[0].ID, infos[1].ID)
	}
	if infos[0].WordCount != 30 {
		t.Errorf("Expected 30 words, got %d", infos[0].WordCount)
	}

	if err := m.SetDefault("alpha"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if m.GetDefault().Name != "Alpha" {
		t.Errorf("Expected Alpha default, got %s", m.GetDefault().Name)
	}

	if err := m.RefreshCache(); err != nil {
		t.Fatalf("Failed to refresh cache: %v", err)
	}
	if m.GetDefault().Name != "Alpha" {
		t.Errorf("Expected first valid set after refresh, got %s", m.GetDefault().Name)
	}
}

func TestShippedWordSets(t *testing.T) {
	m, err := NewManager("../../wordsets")
	if err != nil {
		t.Skipf("Skipping test - wordsets directory not found: %v", err)
	}
	infos, err := m.ListWordSets()
	if err != nil {
		t.Fatalf("Failed to list word sets: %v", err)
	}
	if len(infos) == 0 {
		t.Fatal("Expected shipped word sets to be valid")
	}
	if m.GetDefault().Name != "Classic" {
		t.Errorf("Expected Classic default, got %s", m.GetDefault().Name)
	}
}
