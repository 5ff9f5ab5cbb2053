// Package mcp exposes the Codenames server to AI agents over the Model
// Context Protocol.
//
// Client is a thin proxy: every tool calls the REST API and formats the JSON
// answer as text. It never touches sessions directly, so the same tools work
// whether the agent talks to /mcp on a running server or to a stdio process
// pointed at one.
//
// MCP Tools:
//   - list_games: Live games with turn, remaining cards and player count
//   - game_state: One game's 5x5 grid; spymaster=true also shows hidden colors
//   - new_board: Deal a board and a free key, with the NEW_GAME frame to send
//   - list_wordsets: Word sets available for new_board
//   - stats: Usage totals and live counts
//
// Transport Modes:
//   - HTTP: Client implements http.Handler for POST /mcp
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", version)
//	router.Handle("/mcp", client)
package mcp
