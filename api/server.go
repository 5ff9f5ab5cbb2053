package api

import (
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/codenames/game/engine"
	"github.com/wricardo/mcp-training/codenames/game/session"
	"github.com/wricardo/mcp-training/codenames/game/words"
	"github.com/wricardo/mcp-training/codenames/stats"
	"github.com/wricardo/mcp-training/codenames/transport/websocket"
)

// maxKeyAttempts bounds how often a generated key may collide with a live game.
const maxKeyAttempts = 10

// StatsSource exposes the current usage counters.
type StatsSource interface {
	Snapshot() stats.Snapshot
}

// GameSummary is the list view of a live game.
type GameSummary struct {
	GameKey         string                 `json:"gameKey"`
	Players         int                    `json:"players"`
	CreatedAt       time.Time              `json:"createdAt"`
	LastActivity    time.Time              `json:"lastActivity"`
	Phase           engine.Phase           `json:"phase"`
	CurrentTeam     engine.Team            `json:"currentTeam"`
	RemainingCounts engine.RemainingCounts `json:"remainingCounts"`
	GameOver        bool                   `json:"gameOver"`
	Winner          engine.Winner          `json:"winner,omitempty"`
}

// GameDetail is a full snapshot of one game.
type GameDetail struct {
	GameKey      string            `json:"gameKey"`
	Players      []string          `json:"players"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastActivity time.Time         `json:"lastActivity"`
	Phase        engine.Phase      `json:"phase"`
	State        *engine.GameState `json:"state"`
}

// BoardResponse is a freshly dealt board for a subsequent NEW_GAME.
type BoardResponse struct {
	GameKey string       `json:"gameKey"`
	WordSet string       `json:"wordset"`
	Board   engine.Board `json:"board"`
}

// Server represents the REST API server
type Server struct {
	manager  *session.Manager
	wordSets *words.Manager
	hub      *websocket.Hub
	stats    StatsSource
	logger   *zap.Logger
	router   *mux.Router

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewServer creates a new API server
func NewServer(manager *session.Manager, wordSets *words.Manager, hub *websocket.Hub, statsSource StatsSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		manager:  manager,
		wordSets: wordSets,
		hub:      hub,
		stats:    statsSource,
		logger:   logger,
		router:   mux.NewRouter(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Live games are read-only here; they change over the WebSocket only.
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{key}", s.handleGetGame).Methods("GET")

	// Boards and word sets
	api.HandleFunc("/boards", s.handleNewBoard).Methods("POST")
	api.HandleFunc("/wordsets", s.handleListWordSets).Methods("GET")
	api.HandleFunc("/wordsets/refresh", s.handleRefreshWordSets).Methods("POST")
	api.HandleFunc("/wordsets/{name}", s.handleGetWordSet).Methods("GET")
	api.HandleFunc("/wordsets/{name}", s.handleSaveWordSet).Methods("PUT")
	api.HandleFunc("/wordsets/{name}/default", s.handleSetDefaultWordSet).Methods("PUT")

	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// Handle mounts an extra handler, such as the MCP endpoint, on the router.
func (s *Server) Handle(path string, handler http.Handler) {
	s.router.Handle(path, handler)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Game Handlers

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	sessions := s.manager.List()

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "activity" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of games to return

	if sortBy == "" {
		sortBy = "activity"
	}
	if order == "" {
		order = "desc"
	}

	games := make([]GameSummary, 0, len(sessions))
	for _, sess := range sessions {
		state := sess.State()
		games = append(games, GameSummary{
			GameKey:         sess.Key,
			Players:         sess.PlayerCount(),
			CreatedAt:       sess.CreatedAt,
			LastActivity:    sess.LastActivity(),
			Phase:           sess.Phase(),
			CurrentTeam:     state.CurrentTeam,
			RemainingCounts: state.RemainingCounts,
			GameOver:        state.GameOver,
			Winner:          state.Winner,
		})
	}

	sort.Slice(games, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = games[i].CreatedAt, games[j].CreatedAt
		} else {
			ti, tj = games[i].LastActivity, games[j].LastActivity
		}
		if ti.Equal(tj) {
			return games[i].GameKey < games[j].GameKey
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(games)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(games) {
			games = games[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(games),
		"total": total,
		"games": games,
		"sort":  sortBy,
		"order": order,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	sess, err := s.manager.Get(key)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, GameDetail{
		GameKey:      sess.Key,
		Players:      sess.Players(),
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastActivity(),
		Phase:        sess.Phase(),
		State:        sess.State(),
	})
}

// Board and Word Set Handlers

func (s *Server) handleNewBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WordSet string `json:"wordset,omitempty"`
	}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	set := s.wordSets.GetDefault()
	setID := set.Name
	if req.WordSet != "" {
		var err error
		if set, err = s.wordSets.LoadWordSet(req.WordSet); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, words.ErrWordSetNotFound) || errors.Is(err, words.ErrInvalidWordSet) {
				status = http.StatusNotFound
			}
			respondError(w, status, err.Error())
			return
		}
		setID = req.WordSet
	}

	s.rngMu.Lock()
	board, err := words.NewBoard(set.Words, s.rng)
	key := s.freeKey(set.Words)
	s.rngMu.Unlock()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, BoardResponse{GameKey: key, WordSet: setID, Board: board})
}

// freeKey generates a key that no live game is using. Callers hold rngMu.
func (s *Server) freeKey(pool []string) string {
	key := words.NewKey(pool, s.rng)
	for i := 1; i < maxKeyAttempts; i++ {
		if _, err := s.manager.Get(key); errors.Is(err, session.ErrSessionNotFound) {
			break
		}
		key = words.NewKey(pool, s.rng)
	}
	return key
}

func (s *Server) handleListWordSets(w http.ResponseWriter, r *http.Request) {
	infos, err := s.wordSets.ListWordSets()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var defaultName string
	if def := s.wordSets.GetDefault(); def != nil {
		defaultName = def.Name
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(infos),
		"wordsets": infos,
		"default":  defaultName,
	})
}

func (s *Server) handleGetWordSet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	set, err := s.wordSets.LoadWordSet(name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, words.ErrWordSetNotFound) || errors.Is(err, words.ErrInvalidWordSet) {
			status = http.StatusNotFound
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, set)
}

// handleSaveWordSet writes the request body as word set {name}, replacing any
// existing file.
func (s *Server) handleSaveWordSet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var set words.WordSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.wordSets.SaveWordSet(name, &set); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, words.ErrInvalidWordSet) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}

	s.logger.Info("word set saved", zap.String("wordset", name), zap.Int("words", len(set.Words)))
	respondJSON(w, http.StatusOK, &words.Info{
		Filename:    name + ".json",
		ID:          name,
		Name:        set.Name,
		Description: set.Description,
		WordCount:   len(set.Words),
	})
}

func (s *Server) handleSetDefaultWordSet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.wordSets.SetDefault(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, words.ErrWordSetNotFound) || errors.Is(err, words.ErrInvalidWordSet) {
			status = http.StatusNotFound
		}
		respondError(w, status, err.Error())
		return
	}

	s.logger.Info("default word set changed", zap.String("wordset", name))
	respondJSON(w, http.StatusOK, map[string]string{"default": s.wordSets.GetDefault().Name})
}

// handleRefreshWordSets drops cached word sets so edits on disk are picked up.
// The default is picked again the same way as on startup.
func (s *Server) handleRefreshWordSets(w http.ResponseWriter, r *http.Request) {
	if err := s.wordSets.RefreshCache(); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"default": s.wordSets.GetDefault().Name})
}

// Stats and Health

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var snap stats.Snapshot
	if s.stats != nil {
		snap = s.stats.Snapshot()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"totals":      snap,
		"live_games":  s.manager.Count(),
		"connections": s.connections(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket hub not running")
		return
	}
	s.hub.ServeWS(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"games":       s.manager.Count(),
		"connections": s.connections(),
	})
}

func (s *Server) connections() int {
	if s.hub == nil {
		return 0
	}
	return s.hub.Connections()
}
