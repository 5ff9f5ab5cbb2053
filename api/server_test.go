package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/mcp-training/codenames/game/engine"
	"github.com/wricardo/mcp-training/codenames/game/session"
	"github.com/wricardo/mcp-training/codenames/game/words"
	"github.com/wricardo/mcp-training/codenames/stats"
	"github.com/wricardo/mcp-training/codenames/transport/websocket"
)

type fixedStats stats.Snapshot

func (f fixedStats) Snapshot() stats.Snapshot { return stats.Snapshot(f) }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func createTestBoard() engine.Board {
	var board engine.Board
	for i := range board {
		color := engine.ColorNeutral
		switch {
		case i < 9:
			color = engine.ColorBlue
		case i < 17:
			color = engine.ColorRed
		case i == 24:
			color = engine.ColorAssassin
		}
		board[i] = engine.Card{Word: fmt.Sprintf("word%02d", i), Color: color}
	}
	return board
}

func writeWordSet(t *testing.T, dir, id, name string, n int) {
	t.Helper()
	set := words.WordSet{Name: name}
	for i := 0; i < n; i++ {
		set.Words = append(set.Words, fmt.Sprintf("%s%02d", id, i))
	}
	data, _ := json.Marshal(set)
	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write word set: %v", err)
	}
}

func setupTestServer(t *testing.T) (*Server, *session.Manager, *fakeClock) {
	t.Helper()
	dir := t.TempDir()
	writeWordSet(t, dir, "classic", "Classic", 30)
	writeWordSet(t, dir, "animals", "Animals", 26)
	writeWordSet(t, dir, "tiny", "Tiny", 3)

	wordSets, err := words.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create word set manager: %v", err)
	}

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	manager := session.NewManager(session.WithClock(clock.Now))
	snap := fixedStats{GamesCreated: 7, GamesCompleted: 3}

	return NewServer(manager, wordSets, nil, snap, zaptest.NewLogger(t)), manager, clock
}

func makeRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func TestListGames(t *testing.T) {
	server, manager, clock := setupTestServer(t)

	first, _, _ := manager.CreateIfAbsent("alpha", createTestBoard(), nil)
	clock.now = clock.now.Add(time.Minute)
	manager.CreateIfAbsent("bravo", createTestBoard(), nil)
	clock.now = clock.now.Add(time.Minute)
	manager.CreateIfAbsent("charlie", createTestBoard(), nil)
	clock.now = clock.now.Add(time.Minute)
	first.Reveal(0) // alpha is now the most recently active

	tests := []struct {
		name     string
		query    string
		wantKeys []string
		wantSort string
	}{
		{"default activity desc", "", []string{"alpha", "charlie", "bravo"}, "activity"},
		{"created asc", "?sort=created&order=asc", []string{"alpha", "bravo", "charlie"}, "created"},
		{"created desc limited", "?sort=created&limit=2", []string{"charlie", "bravo"}, "created"},
		{"bad limit ignored", "?limit=abc", []string{"alpha", "charlie", "bravo"}, "activity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/games"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count int           `json:"count"`
				Total int           `json:"total"`
				Games []GameSummary `json:"games"`
				Sort  string        `json:"sort"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != 3 {
				t.Errorf("Expected total 3, got %d", resp.Total)
			}
			if resp.Count != len(tt.wantKeys) {
				t.Errorf("Expected count %d, got %d", len(tt.wantKeys), resp.Count)
			}
			if resp.Sort != tt.wantSort {
				t.Errorf("Expected sort %s, got %s", tt.wantSort, resp.Sort)
			}
			for i, key := range tt.wantKeys {
				if i >= len(resp.Games) || resp.Games[i].GameKey != key {
					t.Fatalf("Expected order %v, got %+v", tt.wantKeys, resp.Games)
				}
			}
		})
	}
}

func TestListGames_Summary(t *testing.T) {
	server, manager, _ := setupTestServer(t)
	sess, _, _ := manager.CreateIfAbsent("k", createTestBoard(), nil)
	sess.Reveal(24)
	session.NewPresence().Attach("conn-1", sess)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/games", nil))

	var resp struct {
		Games []GameSummary `json:"games"`
	}
	parseResponse(t, w, &resp)
	if len(resp.Games) != 1 {
		t.Fatalf("Expected 1 game, got %d", len(resp.Games))
	}
	got := resp.Games[0]
	if !got.GameOver || got.Winner != engine.WinnerAssassin {
		t.Errorf("Expected assassin win, got %+v", got)
	}
	if got.Players != 1 {
		t.Errorf("Expected 1 player, got %d", got.Players)
	}
	if got.CurrentTeam != engine.TeamRed {
		t.Errorf("Expected red after assassin switch, got %s", got.CurrentTeam)
	}
	if got.Phase != engine.PhaseOver {
		t.Errorf("Expected phase %s, got %s", engine.PhaseOver, got.Phase)
	}
}

func TestGetGame(t *testing.T) {
	server, manager, _ := setupTestServer(t)
	sess, _, _ := manager.CreateIfAbsent("lemon-castle-42", createTestBoard(), nil)
	sess.Reveal(9)

	tests := []struct {
		name           string
		key            string
		expectedStatus int
	}{
		{"existing game", "lemon-castle-42", http.StatusOK},
		{"keys are case sensitive", "Lemon-Castle-42", http.StatusNotFound},
		{"unknown game", "nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/games/"+tt.key, nil))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus != http.StatusOK {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if !strings.Contains(resp["error"], "session not found") {
					t.Errorf("Expected not found error, got %q", resp["error"])
				}
				return
			}

			var detail GameDetail
			parseResponse(t, w, &detail)
			if detail.GameKey != tt.key {
				t.Errorf("Expected key %s, got %s", tt.key, detail.GameKey)
			}
			if !detail.State.Revealed[9] || detail.State.CurrentTeam != engine.TeamRed {
				t.Errorf("Expected red card revealed and turn passed to red, got %+v", detail.State)
			}
			if detail.Phase != engine.PhaseRedTurn {
				t.Errorf("Expected phase %s, got %s", engine.PhaseRedTurn, detail.Phase)
			}
		})
	}
}

func TestNewBoard(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		expectedStatus int
		wantWordSet    string
	}{
		{"default word set", nil, http.StatusCreated, "Classic"},
		{"named word set", map[string]string{"wordset": "animals"}, http.StatusCreated, "animals"},
		{"unknown word set", map[string]string{"wordset": "missing"}, http.StatusNotFound, ""},
		{"too few words", map[string]string{"wordset": "tiny"}, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, manager, _ := setupTestServer(t)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/boards", tt.body))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusCreated {
				return
			}

			var resp BoardResponse
			parseResponse(t, w, &resp)
			if resp.WordSet != tt.wantWordSet {
				t.Errorf("Expected word set %s, got %s", tt.wantWordSet, resp.WordSet)
			}
			if resp.GameKey == "" {
				t.Error("Expected a game key")
			}
			if out := engine.Derive(resp.Board, engine.Reveals{}); out.Remaining.Blue != 9 || out.Remaining.Red != 8 {
				t.Errorf("Expected 9/8 board, got %+v", out.Remaining)
			}
			if manager.Count() != 0 {
				t.Error("Dealing a board must not create a game")
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		server, _, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/boards", strings.NewReader("{nope"))
		server.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestWordSets(t *testing.T) {
	server, _, _ := setupTestServer(t)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/wordsets", nil))

		var resp struct {
			Count    int           `json:"count"`
			WordSets []*words.Info `json:"wordsets"`
			Default  string        `json:"default"`
		}
		parseResponse(t, w, &resp)
		if resp.Count != 2 {
			t.Errorf("Expected 2 valid word sets, got %d", resp.Count)
		}
		if resp.Default != "Classic" {
			t.Errorf("Expected Classic default, got %s", resp.Default)
		}
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/wordsets/animals", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var set words.WordSet
		parseResponse(t, w, &set)
		if set.Name != "Animals" || len(set.Words) != 26 {
			t.Errorf("Unexpected word set %s with %d words", set.Name, len(set.Words))
		}
	})

	t.Run("get missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/wordsets/missing", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestWordSets_Write(t *testing.T) {
	server, _, _ := setupTestServer(t)

	wordList := func(prefix string, n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("%s%02d", prefix, i)
		}
		return out
	}
	listDefault := func(t *testing.T) string {
		t.Helper()
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/wordsets", nil))
		var resp struct {
			Default string `json:"default"`
		}
		parseResponse(t, w, &resp)
		return resp.Default
	}

	saves := []struct {
		name           string
		id             string
		body           any
		expectedStatus int
	}{
		{"valid", "space", words.WordSet{Name: "Space", Words: wordList("star", 25)}, http.StatusOK},
		{"too few words", "short", words.WordSet{Name: "Short", Words: wordList("x", 5)}, http.StatusBadRequest},
		{"missing name", "nameless", words.WordSet{Words: wordList("y", 25)}, http.StatusBadRequest},
		{"bad body", "broken", "not a word set", http.StatusBadRequest},
	}
	for _, tt := range saves {
		t.Run("save "+tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("PUT", "/api/wordsets/"+tt.id, tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var info words.Info
			parseResponse(t, w, &info)
			if info.ID != tt.id || info.WordCount != 25 {
				t.Errorf("Unexpected info %+v", info)
			}

			w = httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/boards", map[string]string{"wordset": tt.id}))
			if w.Code != http.StatusCreated {
				t.Errorf("Expected the saved set to deal a board, got %d", w.Code)
			}
		})
	}

	t.Run("set default", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("PUT", "/api/wordsets/animals/default", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if got := listDefault(t); got != "Animals" {
			t.Errorf("Expected Animals default, got %s", got)
		}

		w = httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/boards", nil))
		var resp BoardResponse
		parseResponse(t, w, &resp)
		if resp.WordSet != "Animals" {
			t.Errorf("Expected boards from the new default, got %s", resp.WordSet)
		}
	})

	t.Run("set default unknown", func(t *testing.T) {
		for _, id := range []string{"missing", "tiny"} {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("PUT", "/api/wordsets/"+id+"/default", nil))
			if w.Code != http.StatusNotFound {
				t.Errorf("Expected status 404 for %s, got %d", id, w.Code)
			}
		}
		if got := listDefault(t); got != "Animals" {
			t.Errorf("Default changed by a failed request, got %s", got)
		}
	})

	t.Run("refresh", func(t *testing.T) {
		dir := t.TempDir()
		writeWordSet(t, dir, "classic", "Classic", 30)
		wordSets, err := words.NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create word set manager: %v", err)
		}
		server := NewServer(session.NewManager(), wordSets, nil, nil, zaptest.NewLogger(t))

		get := func() words.WordSet {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/wordsets/classic", nil))
			var set words.WordSet
			parseResponse(t, w, &set)
			return set
		}
		get()

		// Edited on disk behind the cache.
		writeWordSet(t, dir, "classic", "Classic v2", 40)
		if set := get(); set.Name != "Classic" {
			t.Fatalf("Expected cached word set before refresh, got %s", set.Name)
		}

		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/wordsets/refresh", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp map[string]string
		parseResponse(t, w, &resp)
		if resp["default"] != "Classic v2" {
			t.Errorf("Expected reloaded default, got %q", resp["default"])
		}
		if set := get(); set.Name != "Classic v2" || len(set.Words) != 40 {
			t.Errorf("Expected reloaded word set, got %s with %d words", set.Name, len(set.Words))
		}
	})
}

func TestStatsAndHealth(t *testing.T) {
	server, manager, _ := setupTestServer(t)
	manager.CreateIfAbsent("k", createTestBoard(), nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/stats", nil))
	var resp struct {
		Totals    stats.Snapshot `json:"totals"`
		LiveGames int            `json:"live_games"`
	}
	parseResponse(t, w, &resp)
	if resp.Totals.GamesCreated != 7 || resp.Totals.GamesCompleted != 3 {
		t.Errorf("Unexpected totals %+v", resp.Totals)
	}
	if resp.LiveGames != 1 {
		t.Errorf("Expected 1 live game, got %d", resp.LiveGames)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/healthz", nil))
	var health map[string]any
	parseResponse(t, w, &health)
	if health["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", health["status"])
	}
}

func TestWebSocket(t *testing.T) {
	t.Run("no hub", func(t *testing.T) {
		server, _, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})

	t.Run("upgrade", func(t *testing.T) {
		dir := t.TempDir()
		wordSets, _ := words.NewManager(dir)
		manager := session.NewManager()
		hub := websocket.NewHub(manager, nil, zaptest.NewLogger(t))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go hub.Run(ctx)

		ts := httptest.NewServer(NewServer(manager, wordSets, hub, nil, nil))
		defer ts.Close()

		conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
		if err != nil {
			t.Fatalf("Failed to connect to WebSocket: %v", err)
		}
		defer conn.Close()

		board := createTestBoard()
		if err := conn.WriteJSON(map[string]any{"type": "JOIN_GAME", "gameKey": "via-api", "board": board}); err != nil {
			t.Fatalf("Failed to send join: %v", err)
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Type    string `json:"type"`
			GameKey string `json:"gameKey"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Failed to read state: %v", err)
		}
		if msg.Type != "GAME_STATE" || msg.GameKey != "via-api" {
			t.Errorf("Unexpected message %+v", msg)
		}

		w := httptest.NewRecorder()
		NewServer(manager, wordSets, hub, nil, nil).ServeHTTP(w, makeRequest("GET", "/api/games/via-api", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected game visible over REST, got %d", w.Code)
		}
	})
}
