// Package api provides the HTTP surface of the Codenames server.
//
// Endpoints:
//
// Games (read-only; games change only over the WebSocket):
//   - GET /api/games - List live games (sort=activity|created, order=desc|asc, limit=N)
//   - GET /api/games/{key} - Full state of one game, 404 when unknown
//
// Boards and word sets:
//   - POST /api/boards - Deal a board and a free game key, body {"wordset": "classic"} optional
//   - GET /api/wordsets - List valid word sets and the default
//   - GET /api/wordsets/{name} - One word set
//
// Other:
//   - GET /api/stats - Usage totals plus live game and connection counts
//   - GET /ws - WebSocket upgrade into the hub
//   - GET /healthz - Liveness check
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "session not found: lemon-castle-42"}
//
// Usage:
//
//	server := api.NewServer(manager, wordSets, hub, counter, logger)
//	http.ListenAndServe(":8080", server)
package api
