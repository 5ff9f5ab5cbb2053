package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/codenames/api"
	"github.com/wricardo/mcp-training/codenames/game/engine"
	"github.com/wricardo/mcp-training/codenames/game/words"
	"github.com/wricardo/mcp-training/codenames/stats"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string, version string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer(version)
	return c
}

func (c *Client) initMCPServer(version string) {
	c.mcpServer = server.NewMCPServer(
		"Codenames",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Codenames - MCP Interface

This is a thin client that proxies all requests to the REST API server.
Games are played by browsers over the WebSocket; these tools inspect them
and prepare boards.

BOARD:
25 words, 9 blue, 8 red, 7 neutral and 1 assassin. Blue plays first.
Revealing your own color keeps the turn, anything else passes it.
Revealing the assassin ends the game at once.

AVAILABLE TOOLS:
- list_games: List live games
- game_state: Show one game's board, turn and remaining cards
- new_board: Deal a board and a free game key for a NEW_GAME message
- list_wordsets: List available word sets
- stats: Usage totals and live counts`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List live games, most recently active first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"limit": map[string]any{
					"type":        "number",
					"description": "Maximum number of games to return (optional)",
				},
			},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board and turn state of a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"game_key": map[string]any{
					"type":        "string",
					"description": "Game key, e.g. lemon-castle-42",
				},
				"spymaster": map[string]any{
					"type":        "boolean",
					"description": "Show the colors of unrevealed cards",
				},
			},
			Required: []string{"game_key"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_board",
		Description: "Deal a new board and a free game key. Send them in a NEW_GAME message to start playing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"wordset": map[string]any{
					"type":        "string",
					"description": "Word set id (optional, defaults to the server default)",
				},
			},
		},
	}, c.handleNewBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_wordsets",
		Description: "List available word sets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListWordSets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stats",
		Description: "Show games created, completed and removed plus live counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleStats)
}

// GetMCPServer returns the underlying MCP server for stdio serving.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP handles a single JSON-RPC message posted to the /mcp endpoint.
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

// Tool handlers

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/games"
	if limit, ok := arguments(request)["limit"].(float64); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", int(limit))
	}

	var response struct {
		Count int               `json:"count"`
		Total int               `json:"total"`
		Games []api.GameSummary `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Live Games (%d of %d):\n\n", response.Count, response.Total)
	for _, g := range response.Games {
		status := fmt.Sprintf("%s to play", g.CurrentTeam)
		if g.GameOver {
			status = "won by " + string(g.Winner)
		}
		fmt.Fprintf(&b, "- %s: %s (%s), blue %d / red %d left, %d player(s), active %s\n",
			g.GameKey, status, g.Phase, g.RemainingCounts.Blue, g.RemainingCounts.Red,
			g.Players, g.LastActivity.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	key, _ := args["game_key"].(string)
	if key == "" {
		return mcp.NewToolResultError("game_key is required"), nil
	}
	spymaster, _ := args["spymaster"].(bool)

	var detail api.GameDetail
	if err := c.apiCall(ctx, "GET", "/api/games/"+url.PathEscape(key), nil, &detail); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGame(&detail, spymaster)), nil
}

func (c *Client) handleNewBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if set, _ := arguments(request)["wordset"].(string); set != "" {
		body["wordset"] = set
	}

	var resp api.BoardResponse
	if err := c.apiCall(ctx, "POST", "/api/boards", body, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	board, err := json.Marshal(resp.Board)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Game key: %s\nWord set: %s\n\n", resp.GameKey, resp.WordSet)
	b.WriteString(formatGrid(resp.Board, engine.Reveals{}, true))
	fmt.Fprintf(&b, "\nStart it with:\n{\"type\":\"NEW_GAME\",\"gameKey\":%q,\"board\":%s}\n", resp.GameKey, board)
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListWordSets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int           `json:"count"`
		WordSets []*words.Info `json:"wordsets"`
		Default  string        `json:"default"`
	}
	if err := c.apiCall(ctx, "GET", "/api/wordsets", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Word Sets (%d), default %s:\n\n", response.Count, response.Default)
	for _, info := range response.WordSets {
		fmt.Fprintf(&b, "- %s: %s (%d words)", info.ID, info.Name, info.WordCount)
		if info.Description != "" {
			fmt.Fprintf(&b, " - %s", info.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Totals      stats.Snapshot `json:"totals"`
		LiveGames   int            `json:"live_games"`
		Connections int            `json:"connections"`
	}
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t := response.Totals
	result := fmt.Sprintf("Games created: %d\nGames completed: %d\nGames removed: %d\nLive games: %d\nConnections: %d\n",
		t.GamesCreated, t.GamesCompleted, t.GamesRemoved, response.LiveGames, response.Connections)
	return mcp.NewToolResultText(result), nil
}

// Formatting

func formatGame(detail *api.GameDetail, spymaster bool) string {
	state := detail.State

	var b strings.Builder
	fmt.Fprintf(&b, "Game %s (%s)\n", detail.GameKey, detail.Phase)
	if state.GameOver {
		fmt.Fprintf(&b, "Game over, winner: %s\n", state.Winner)
	} else {
		fmt.Fprintf(&b, "Turn: %s\n", state.CurrentTeam)
	}
	fmt.Fprintf(&b, "Remaining: blue %d, red %d\n", state.RemainingCounts.Blue, state.RemainingCounts.Red)
	fmt.Fprintf(&b, "Players: %d\n\n", len(detail.Players))
	b.WriteString(formatGrid(state.Board, state.Revealed, spymaster || state.GameOver))
	return b.String()
}

// formatGrid renders the board as five rows. Revealed cards show their color
// in upper case; hidden cards show it in lower case only when showColors is set.
func formatGrid(board engine.Board, revealed engine.Reveals, showColors bool) string {
	const cols = 5

	var b strings.Builder
	for i, card := range board {
		cell := card.Word
		switch {
		case revealed[i]:
			cell = fmt.Sprintf("%s [%s]", card.Word, strings.ToUpper(string(card.Color)))
		case showColors:
			cell = fmt.Sprintf("%s (%s)", card.Word, card.Color)
		}
		fmt.Fprintf(&b, "%2d. %-28s", i, cell)
		if i%cols == cols-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
