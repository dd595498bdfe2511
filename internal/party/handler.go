package party

import (
	"math/rand"
	"sort"

	"game-night/internal/game"
)

// RoomOps is the narrow capability surface a game handler works against.
// Handlers never see the coordinator itself: they read the room snapshot,
// mutate game state through it, and ask for persistence and broadcast.
type RoomOps interface {
	State() *RoomState
	HostID() string
	Rand() *rand.Rand
	// PersistState writes the fast in-process snapshot synchronously.
	PersistState()
	// PersistBackup checkpoints to the relational backup; failures are
	// logged, never surfaced.
	PersistBackup()
	Broadcast(opts BroadcastOptions)
}

// GameHandler binds a game kind to its state machine and view projector.
type GameHandler interface {
	// HandleMessage applies one game-specific client message. Illegal
	// actions are logged no-ops: no mutation, no broadcast.
	HandleMessage(ops RoomOps, player *game.Player, msg Message)
	// PerPlayerViews reports whether broadcasts must be projected per
	// connection once the game has started.
	PerPlayerViews() bool
	// PlayerView returns the "state"/"players" payload portions for one
	// viewer. An error triggers the public fallback for that connection.
	PlayerView(state *RoomState, viewerID string) (map[string]any, error)
	// PublicPayload returns the role-free "state"/"players" portions.
	PublicPayload(state *RoomState) map[string]any
}

// HandlerFor resolves the handler for a game kind. The game set is closed,
// so this is a switch rather than a runtime registry.
func HandlerFor(kind game.Kind) (GameHandler, bool) {
	switch kind {
	case game.KindAvalon:
		return avalonHandler{}, true
	case game.KindCodenames:
		return codenamesHandler{}, true
	}
	return nil, false
}

// normalizeOrders applies a client-supplied seating order and renumbers the
// roster to a dense 1..N sequence, sorting by requested order with unordered
// players last. Leader rotation depends on orders being dense.
func normalizeOrders(players []*game.Player, updates []game.OrderUpdate) {
	requested := make(map[string]int, len(updates))
	for _, u := range updates {
		requested[u.ID] = u.Order
	}
	sort.SliceStable(players, func(i, j int) bool {
		return orderKey(players[i], requested) < orderKey(players[j], requested)
	})
	for i, p := range players {
		p.Order = i + 1
	}
}

func orderKey(p *game.Player, requested map[string]int) int {
	if o, ok := requested[p.ID]; ok && o > 0 {
		return o
	}
	if p.Order > 0 {
		return p.Order
	}
	return 1 << 30
}
