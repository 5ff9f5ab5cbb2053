// Command bot plays Codenames games against a running server over the
// WebSocket gateway. It deals a board through the REST API (or joins an
// existing game), then reveals random hidden cards until the game is over.
// Several bots can share one game to exercise broadcast and concurrent reveals.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/codenames/api"
	"github.com/wricardo/mcp-training/codenames/game/engine"
	ws "github.com/wricardo/mcp-training/codenames/transport/websocket"
)

// Config controls a bot run.
type Config struct {
	BaseURL string
	GameKey string // join this game instead of dealing a new one
	WordSet string
	Bots    int
	Delay   time.Duration
	Timeout time.Duration
	Seed    int64
}

// message is an outbound server frame with the payload left raw.
type message struct {
	Type    string            `json:"type"`
	GameKey string            `json:"gameKey"`
	State   *engine.GameState `json:"state,omitempty"`
	Data    json.RawMessage   `json:"data,omitempty"`
}

// Bot is one WebSocket participant.
type Bot struct {
	name    string
	conn    *websocket.Conn
	rng     *rand.Rand
	delay   time.Duration
	pending [][]byte
	logger  *zap.Logger

	Reveals int
}

// Dial connects a bot to the server's /ws endpoint.
func Dial(ctx context.Context, baseURL, name string, seed int64, delay time.Duration, logger *zap.Logger) (*Bot, error) {
	wsURL := "ws" + strings.TrimPrefix(strings.TrimSuffix(baseURL, "/"), "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Bot{
		name:   name,
		conn:   conn,
		rng:    rand.New(rand.NewSource(seed)),
		delay:  delay,
		logger: logger.With(zap.String("bot", name)),
	}, nil
}

// Close closes the connection.
func (b *Bot) Close() error {
	return b.conn.Close()
}

// Join sends JOIN_GAME for key, or NEW_GAME when board is not nil, and waits
// for the first state of that game.
func (b *Bot) Join(ctx context.Context, key string, board *engine.Board) (*engine.GameState, error) {
	stop := context.AfterFunc(ctx, func() { b.conn.Close() })
	defer stop()

	join := map[string]any{"type": ws.TypeJoinGame, "gameKey": key}
	if board != nil {
		join["type"] = ws.TypeNewGame
		join["board"] = board
	}
	if err := b.conn.WriteJSON(join); err != nil {
		return nil, fmt.Errorf("send join: %w", err)
	}
	return b.nextState(ctx, key)
}

// Play reveals random hidden cards of key, starting from state, until the
// game is over. It returns the final state.
func (b *Bot) Play(ctx context.Context, key string, state *engine.GameState) (*engine.GameState, error) {
	stop := context.AfterFunc(ctx, func() { b.conn.Close() })
	defer stop()

	for !state.GameOver {
		if b.delay > 0 {
			select {
			case <-time.After(b.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		index := b.pick(state.Revealed)
		if index < 0 {
			return state, nil
		}
		b.logger.Debug("Revealing card",
			zap.Int("index", index),
			zap.String("word", state.Board[index].Word),
			zap.String("team", string(state.CurrentTeam)))
		if err := b.conn.WriteJSON(map[string]any{"type": ws.TypeRevealCard, "gameKey": key, "cardIndex": index}); err != nil {
			return nil, fmt.Errorf("send reveal: %w", err)
		}
		b.Reveals++

		next, err := b.nextState(ctx, key)
		if err != nil {
			return nil, err
		}
		state = next
	}
	return state, nil
}

// nextState reads frames until a GAME_STATE for key arrives.
func (b *Bot) nextState(ctx context.Context, key string) (*engine.GameState, error) {
	for {
		msg, err := b.next()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		switch msg.Type {
		case ws.TypeGameState:
			if msg.State != nil && msg.GameKey == key {
				return msg.State, nil
			}
		case ws.TypePlayerJoined:
			var joined ws.PlayerJoined
			if err := json.Unmarshal(msg.Data, &joined); err == nil {
				b.logger.Debug("Player joined", zap.Int("players", joined.PlayerCount))
			}
		}
	}
}

// pick returns a random hidden card index, or -1 when all are revealed.
func (b *Bot) pick(revealed engine.Reveals) int {
	hidden := make([]int, 0, engine.BoardSize)
	for i, r := range revealed {
		if !r {
			hidden = append(hidden, i)
		}
	}
	if len(hidden) == 0 {
		return -1
	}
	return hidden[b.rng.Intn(len(hidden))]
}

// next returns the next frame, splitting messages the server coalesced.
func (b *Bot) next() (*message, error) {
	for len(b.pending) == 0 {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		b.pending = bytes.Split(data, []byte{'\n'})
	}
	data := b.pending[0]
	b.pending = b.pending[1:]

	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", data, err)
	}
	return &msg, nil
}

// dealBoard asks the REST API for a fresh board and free key.
func dealBoard(ctx context.Context, baseURL, wordSet string) (*api.BoardResponse, error) {
	body, err := json.Marshal(map[string]string{"wordset": wordSet})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(baseURL, "/")+"/api/boards", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deal board: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return nil, fmt.Errorf("deal board: %s", msg)
		}
		return nil, fmt.Errorf("deal board: API error: %d", resp.StatusCode)
	}

	var out api.BoardResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	return &out, nil
}

// run plays one game with cfg.Bots participants and returns the final state
// seen by the first bot along with the total reveals sent.
func run(ctx context.Context, cfg Config, logger *zap.Logger) (*engine.GameState, int, error) {
	if cfg.Bots < 1 {
		return nil, 0, errors.New("at least one bot is required")
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	key := cfg.GameKey
	var board *engine.Board
	if key == "" {
		dealt, err := dealBoard(ctx, cfg.BaseURL, cfg.WordSet)
		if err != nil {
			return nil, 0, err
		}
		key, board = dealt.GameKey, &dealt.Board
		logger.Info("Dealt board", zap.String("game_key", key), zap.String("wordset", dealt.WordSet))
	}

	bots := make([]*Bot, cfg.Bots)
	for i := range bots {
		bot, err := Dial(ctx, cfg.BaseURL, fmt.Sprintf("bot-%d", i+1), cfg.Seed+int64(i), cfg.Delay, logger)
		if err != nil {
			for _, b := range bots[:i] {
				b.Close()
			}
			return nil, 0, err
		}
		bots[i] = bot
	}
	defer func() {
		for _, b := range bots {
			b.Close()
		}
	}()

	// The first bot creates the game before the others join it.
	states := make([]*engine.GameState, len(bots))
	for i, bot := range bots {
		var deal *engine.Board
		if i == 0 {
			deal = board
		}
		state, err := bot.Join(ctx, key, deal)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", bot.name, err)
		}
		states[i] = state
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i, bot := range bots {
		wg.Add(1)
		go func(i int, bot *Bot) {
			defer wg.Done()
			state, err := bot.Play(ctx, key, states[i])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", bot.name, err))
				return
			}
			states[i] = state
		}(i, bot)
	}
	wg.Wait()

	reveals := 0
	for _, b := range bots {
		reveals += b.Reveals
	}
	if len(errs) > 0 {
		return nil, reveals, errors.Join(errs...)
	}
	return states[0], reveals, nil
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "Game server URL")
	flag.StringVar(&cfg.GameKey, "game", "", "Join an existing game key instead of dealing a new board")
	flag.StringVar(&cfg.WordSet, "wordset", "", "Word set for the dealt board (default: server default)")
	flag.IntVar(&cfg.Bots, "bots", 1, "Number of bots playing the game")
	flag.DurationVar(&cfg.Delay, "delay", 200*time.Millisecond, "Pause before each reveal")
	flag.DurationVar(&cfg.Timeout, "timeout", 2*time.Minute, "Give up after this long")
	flag.Int64Var(&cfg.Seed, "seed", time.Now().UnixNano(), "Random seed")
	debug := flag.Bool("debug", false, "Log every reveal")
	flag.Parse()

	logger, err := zap.NewProduction()
	if *debug {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	start := time.Now()
	state, reveals, err := run(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Bot run failed", zap.Error(err))
	}

	fmt.Printf("Game over after %d reveals in %s\n", reveals, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Winner: %s\n", state.Winner)
	fmt.Printf("Remaining: blue %d, red %d\n", state.RemainingCounts.Blue, state.RemainingCounts.Red)
}
