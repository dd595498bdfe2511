package game

// Kind identifies which game a room is running. The supported set is closed.
type Kind string

const (
	KindAvalon    Kind = "avalon"
	KindCodenames Kind = "codenames"
)

func ValidKind(kind Kind) bool {
	switch kind {
	case KindAvalon, KindCodenames:
		return true
	}
	return false
}

// Player is one seat in a room. Identity is the client-supplied ID; it is
// unique within a room and survives disconnects once the game has started.
type Player struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Order          int    `json:"order,omitempty"`
	Connected      bool   `json:"connected"`
	DisconnectedAt int64  `json:"disconnectTime,omitempty"`
	SessionTag     string `json:"sessionTag,omitempty"`
	LastHeartbeat  int64  `json:"lastHeartbeat,omitempty"`

	// Per-phase annotations surfaced to clients during Avalon rounds.
	Voted   bool `json:"voted,omitempty"`
	Decided bool `json:"decided,omitempty"`
}

// FindPlayer returns the player with the given id, or nil.
func FindPlayer(players []*Player, id string) *Player {
	for _, p := range players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerByOrder returns the player holding the given turn order, or nil.
func PlayerByOrder(players []*Player, order int) *Player {
	for _, p := range players {
		if p.Order == order {
			return p
		}
	}
	return nil
}

// PublicEntry is the wire representation of a player with no game-secret
// annotations. Session tags and heartbeats never leave the server.
func (p *Player) PublicEntry() map[string]any {
	entry := map[string]any{
		"id":        p.ID,
		"name":      p.Name,
		"connected": p.Connected,
	}
	if p.Order != 0 {
		entry["order"] = p.Order
	}
	if p.DisconnectedAt != 0 {
		entry["disconnectTime"] = p.DisconnectedAt
	}
	if p.Voted {
		entry["voted"] = true
	}
	if p.Decided {
		entry["decided"] = true
	}
	return entry
}

// OrderUpdate is one entry of a client-requested seating order.
type OrderUpdate struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}
