// Package websocket is the real-time gateway between browsers and game sessions.
//
// A single Hub owns every connection. Each client gets a read pump that
// forwards frames to the hub and a write pump that drains its send buffer and
// keeps the connection alive with pings. Hub.Run handles registration,
// disconnects and inbound frames one at a time, so every session mutation and
// the broadcast that follows it happen in a fixed order.
//
// Message Protocol:
//
// Every frame is a JSON object with a "type":
//   - JOIN_GAME {gameKey, board?, savedState?}: join or create a game, merging
//     reveals from savedState into an existing one
//   - NEW_GAME {gameKey, board}: create a game unless one already exists
//   - REVEAL_CARD {gameKey, cardIndex}: reveal a card in the joined game
//
// The hub answers with GAME_STATE {gameKey, state} to everyone in the game
// after each change and PLAYER_JOINED {gameKey, data} to the existing players
// when someone new arrives. Several queued frames may be written as one
// WebSocket message separated by newlines.
//
// Invalid commands are dropped without a reply. Disconnecting only detaches
// the client; the game stays until it is reaped for inactivity.
//
// Usage:
//
//	hub := websocket.NewHub(manager, collector, logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
package websocket
