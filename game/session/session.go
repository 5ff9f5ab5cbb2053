package session

import (
	"sort"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/codenames/game/engine"
)

// Session is one live game and the connections attached to it.
//
// Every exported method takes the session lock for its whole duration, so a
// mutation and the snapshot taken after it are never interleaved with
// another writer or with the reaper reading LastActivity.
type Session struct {
	Key       string
	CreatedAt time.Time

	mu           sync.Mutex
	game         *engine.Game
	lastActivity time.Time
	players      map[string]struct{}
	now          func() time.Time
}

func newSession(key string, board engine.Board, now func() time.Time) *Session {
	created := now()
	return &Session{
		Key:          key,
		CreatedAt:    created,
		game:         engine.NewGame(board),
		lastActivity: created,
		players:      make(map[string]struct{}),
		now:          now,
	}
}

// Reveal applies a reveal and returns the resulting snapshot.
// state is nil when the reveal was rejected.
func (s *Session) Reveal(index int) (state *engine.GameState, completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied, completed := s.game.Reveal(index)
	if !applied {
		return nil, false
	}
	s.lastActivity = s.now()
	return s.game.State(), completed
}

// Join records activity for a joining participant and folds in the reveals
// it carries, if any. The returned snapshot is always current.
func (s *Session) Join(saved *engine.SavedState) (state *engine.GameState, completed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = s.now()
	if saved != nil {
		var reveals engine.Reveals
		reveals, err = engine.ParseReveals(saved.Revealed)
		if err == nil {
			_, completed = s.game.Merge(reveals)
		}
	}
	return s.game.State(), completed, err
}

// State returns a snapshot of the game.
func (s *Session) State() *engine.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.State()
}

// Phase returns the turn state machine position.
func (s *Session) Phase() engine.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Phase()
}

// LastActivity returns the time of the last join or reveal.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Players returns the attached connection IDs in sorted order.
func (s *Session) Players() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PlayerCount returns the number of attached connections.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// HasPlayer reports whether connID is attached.
func (s *Session) HasPlayer(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[connID]
	return ok
}

func (s *Session) attach(connID string) {
	s.mu.Lock()
	s.players[connID] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) detach(connID string) {
	s.mu.Lock()
	delete(s.players, connID)
	s.mu.Unlock()
}
