package party

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"game-night/internal/config"
	"game-night/internal/db"
	"game-night/internal/game"
)

// Room is the single-writer coordinator for one party. Every message,
// timer tick and disconnect for the room is serialized through its mutex;
// in-memory state is always mutated before any persistence write so it
// stays authoritative even when persistence lags.
type Room struct {
	mu      sync.Mutex
	partyID string
	state   *RoomState
	handler GameHandler

	conns       map[*wsConn]*game.Player
	hostID      string
	firstHostID string
	lastAccess  time.Time

	rng       *rand.Rand
	cfg       config.Config
	snapshots SnapshotStore
	backup    *db.Store

	ticker     *time.Ticker
	done       chan struct{}
	closed     bool
	onTeardown func(partyID string)
}

func newRoom(state *RoomState, firstHostID string, cfg config.Config, snapshots SnapshotStore, backup *db.Store, onTeardown func(string)) *Room {
	handler, _ := HandlerFor(state.GameKind)
	r := &Room{
		partyID:     PartyID(state.GameKind, state.PartyCode),
		state:       state,
		handler:     handler,
		conns:       make(map[*wsConn]*game.Player),
		hostID:      firstHostID,
		firstHostID: firstHostID,
		lastAccess:  time.Now(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		cfg:         cfg,
		snapshots:   snapshots,
		backup:      backup,
		done:        make(chan struct{}),
		onTeardown:  onTeardown,
	}
	r.ticker = time.NewTicker(time.Duration(cfg.PingIntervalSeconds) * time.Second)
	go r.sweepLoop()
	return r
}

// PartyID is the identity key for a room: "<kind>-<code>".
func PartyID(kind game.Kind, code string) string {
	return string(kind) + "-" + code
}

func (r *Room) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Started
}

// HandleMessage dispatches one decoded client message.
func (r *Room) HandleMessage(c *wsConn, msg Message) {
	switch msg.Action {
	case actionRegister:
		r.register(c, msg)
	case actionPong:
		r.pong(c)
	default:
		r.mu.Lock()
		defer r.mu.Unlock()
		player := r.conns[c]
		if player == nil || r.handler == nil {
			return
		}
		r.lastAccess = time.Now()
		r.handler.HandleMessage(roomOps{r}, player, msg)
	}
}

// register attaches a connection to a player seat, creating the seat while
// the game has not started. Stale sockets for the id are purged first; a
// newer registration replaces an older live socket when the session tag
// differs or the old connection is not inside the post-restart grace window.
func (r *Room) register(c *wsConn, msg Message) {
	if msg.ID == "" || msg.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.lastAccess = time.Now()

	for conn, p := range r.conns {
		if p.ID == msg.ID && !conn.isOpen() {
			delete(r.conns, conn)
		}
	}

	player := game.FindPlayer(r.state.Players, msg.ID)
	if r.state.Started && player == nil {
		c.sendError(ReasonGameStarted, "")
		c.close()
		return
	}

	for conn, p := range r.conns {
		if conn == c || p.ID != msg.ID {
			continue
		}
		if r.shouldReplace(p, msg.SessionTag) {
			conn.sendError(ReasonConnectionReplaced, "A newer session has connected to this party. You can close this page.")
			conn.close()
			delete(r.conns, conn)
		}
	}

	now := time.Now()
	if player == nil {
		player = &game.Player{
			ID:            msg.ID,
			Name:          msg.Name,
			Connected:     true,
			SessionTag:    msg.SessionTag,
			LastHeartbeat: now.UnixMilli(),
		}
		r.state.Players = append(r.state.Players, player)
	} else {
		player.Connected = true
		player.DisconnectedAt = 0
		player.SessionTag = msg.SessionTag
		player.LastHeartbeat = now.UnixMilli()
	}
	r.conns[c] = player

	if r.firstHostID == "" {
		r.firstHostID = player.ID
	}
	r.updateHost()
	r.persistState()
	r.broadcast(BroadcastOptions{})
	log.Info().Str("party", r.partyID).Str("player", player.ID).Str("conn", c.id).Msg("player registered")
}

// shouldReplace decides whether an older live socket for the same player id
// yields to a new registration. A connection that disconnected moments ago
// is likely flapping right after a coordinator restart and is left alone;
// this is a heuristic tie-break, not a strict guarantee.
func (r *Room) shouldReplace(p *game.Player, incomingTag string) bool {
	if incomingTag != "" && p.SessionTag != "" && incomingTag != p.SessionTag {
		return true
	}
	restartGrace := time.Duration(r.cfg.RemoveTimeoutSeconds) * time.Second
	postRestart := p.DisconnectedAt != 0 &&
		time.Since(time.UnixMilli(p.DisconnectedAt)) < restartGrace
	return !postRestart
}

func (r *Room) pong(c *wsConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastAccess = time.Now()
	if p := r.conns[c]; p != nil {
		p.Connected = true
		p.DisconnectedAt = 0
		p.LastHeartbeat = time.Now().UnixMilli()
	}
}

// Disconnect detaches a connection. Before the game starts the seat is
// released; after start the seat persists and only the connected flag flips,
// preserving role integrity.
func (r *Room) Disconnect(c *wsConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player := r.conns[c]
	delete(r.conns, c)
	c.close()
	if player == nil || r.closed {
		return
	}
	if r.state.Started {
		player.Connected = false
		player.DisconnectedAt = time.Now().UnixMilli()
	} else {
		r.removePlayer(player.ID)
	}
	r.updateHost()
	r.persistState()
	r.broadcast(BroadcastOptions{})
	log.Info().Str("party", r.partyID).Str("player", player.ID).Str("conn", c.id).Msg("player disconnected")
}

func (r *Room) removePlayer(id string) {
	players := r.state.Players[:0]
	for _, p := range r.state.Players {
		if p.ID != id {
			players = append(players, p)
		}
	}
	r.state.Players = players
}

// updateHost applies host election: the first-ever registrant is the
// preferred host whenever connected, otherwise any connected player,
// otherwise nobody.
func (r *Room) updateHost() {
	if r.firstHostID != "" && r.hasLiveConn(r.firstHostID) {
		r.hostID = r.firstHostID
		return
	}
	for _, p := range r.state.Players {
		if r.hasLiveConn(p.ID) {
			r.hostID = p.ID
			return
		}
	}
	r.hostID = ""
}

func (r *Room) hasLiveConn(playerID string) bool {
	for conn, p := range r.conns {
		if p.ID == playerID && conn.isOpen() {
			return true
		}
	}
	return false
}

func (r *Room) sweepLoop() {
	for {
		select {
		case <-r.done:
			r.ticker.Stop()
			return
		case <-r.ticker.C:
			r.sweep()
		}
	}
}

// sweep is the periodic liveness pass: ping live connections, mark players
// missing from the connection set as disconnected after a grace period,
// drop long-disconnected players while the game has not started, and tear
// the room down once everyone is gone and the room has been idle long
// enough.
func (r *Room) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	now := time.Now()
	grace := time.Duration(r.cfg.DisconnectGraceSeconds) * time.Second
	changed := false

	for _, p := range r.state.Players {
		if r.hasLiveConn(p.ID) {
			for conn, cp := range r.conns {
				if cp.ID == p.ID && conn.isOpen() {
					if err := conn.send(map[string]any{"action": actionPing}); err != nil {
						conn.close()
					}
				}
			}
			continue
		}
		if !p.Connected {
			continue
		}
		if p.DisconnectedAt == 0 {
			p.DisconnectedAt = now.UnixMilli()
		} else if now.Sub(time.UnixMilli(p.DisconnectedAt)) > grace {
			p.Connected = false
			changed = true
		}
	}

	if !r.state.Started {
		removeAfter := time.Duration(r.cfg.RemoveTimeoutSeconds) * time.Second
		var removed []string
		for _, p := range r.state.Players {
			if !p.Connected && p.DisconnectedAt != 0 &&
				now.Sub(time.UnixMilli(p.DisconnectedAt)) > removeAfter {
				removed = append(removed, p.ID)
			}
		}
		for _, id := range removed {
			r.removePlayer(id)
			for conn, p := range r.conns {
				if p.ID == id {
					conn.close()
					delete(r.conns, conn)
				}
			}
			changed = true
			log.Info().Str("party", r.partyID).Str("player", id).Msg("idle player removed")
		}
	}

	if changed {
		r.updateHost()
		r.persistState()
		r.broadcast(BroadcastOptions{})
	}

	allGone := true
	for _, p := range r.state.Players {
		if p.Connected {
			allGone = false
			break
		}
	}
	ttl := time.Duration(r.cfg.RoomTTLHours) * time.Hour
	if allGone && now.Sub(r.lastAccess) > ttl {
		r.teardownLocked()
	}
}

// teardownLocked destroys the room: timers cancelled, sockets closed,
// snapshot cleared, and a started game's backup row marked inactive.
func (r *Room) teardownLocked() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
	for conn := range r.conns {
		conn.close()
	}
	r.conns = make(map[*wsConn]*game.Player)
	r.snapshots.Delete(r.partyID)
	if r.state.Started && r.backup != nil {
		if err := r.backup.MarkInactive(r.partyID); err != nil {
			log.Error().Err(err).Str("party", r.partyID).Msg("backup mark inactive failed")
		}
	}
	if r.onTeardown != nil {
		r.onTeardown(r.partyID)
	}
	log.Info().Str("party", r.partyID).Msg("room torn down")
}

// adoptBackupIfStarted resolves the restart race where the in-process
// snapshot holds a not-started room while the backup row already has the
// started game: the backup wins.
func (r *Room) adoptBackupIfStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state.Started || r.backup == nil {
		return
	}
	data, err := r.backup.LoadActive(r.partyID)
	if err != nil {
		log.Error().Err(err).Str("party", r.partyID).Msg("backup load failed")
		return
	}
	if data == nil {
		return
	}
	var restored RoomState
	if err := json.Unmarshal(data, &restored); err != nil {
		log.Error().Err(err).Str("party", r.partyID).Msg("backup state unmarshal failed")
		return
	}
	if !restored.Started {
		return
	}
	r.state = &restored
	r.persistState()
	log.Info().Str("party", r.partyID).Msg("started game adopted from backup")
}

// persistState writes the in-process snapshot. Called synchronously after
// every mutation, before broadcasting.
func (r *Room) persistState() {
	data, err := json.Marshal(r.state)
	if err != nil {
		log.Error().Err(err).Str("party", r.partyID).Msg("state marshal failed")
		return
	}
	if err := r.snapshots.Put(r.partyID, data); err != nil {
		log.Error().Err(err).Str("party", r.partyID).Msg("snapshot write failed")
	}
}

// persistBackup checkpoints to the relational backup. Not a low-latency
// path; failures are logged and in-memory state stays authoritative.
func (r *Room) persistBackup() {
	if r.backup == nil {
		return
	}
	data, err := json.Marshal(r.state)
	if err != nil {
		log.Error().Err(err).Str("party", r.partyID).Msg("state marshal failed")
		return
	}
	if err := r.backup.SaveParty(r.partyID, string(r.state.GameKind), data); err != nil {
		log.Error().Err(err).Str("party", r.partyID).Msg("backup write failed")
	}
}

// broadcast pushes update_state to every open connection. Games with
// per-player views get one projection per connection; a projection failure
// falls back to the public payload for that connection instead of dropping
// it.
func (r *Room) broadcast(opts BroadcastOptions) {
	if r.handler == nil {
		return
	}
	base := map[string]any{
		"action":      actionUpdateState,
		"gameId":      r.state.GameKind,
		"partyCode":   r.state.PartyCode,
		"gameStarted": r.state.Started,
		"hostId":      r.hostID,
	}
	if opts.GameStarting {
		base["gameStarting"] = true
	}
	perPlayer := r.state.Started && r.handler.PerPlayerViews()
	var public map[string]any
	if !perPlayer {
		public = r.handler.PublicPayload(r.state)
	}
	for conn, p := range r.conns {
		if !conn.isOpen() {
			continue
		}
		payload := make(map[string]any, len(base)+2)
		for k, v := range base {
			payload[k] = v
		}
		parts := public
		if perPlayer {
			view, err := r.handler.PlayerView(r.state, p.ID)
			if err != nil {
				log.Warn().Err(err).Str("party", r.partyID).Str("player", p.ID).Msg("player view failed, using public payload")
				if public == nil {
					public = r.handler.PublicPayload(r.state)
				}
				parts = public
			} else {
				parts = view
			}
		}
		for k, v := range parts {
			payload[k] = v
		}
		if err := conn.send(payload); err != nil {
			log.Debug().Err(err).Str("party", r.partyID).Str("conn", conn.id).Msg("broadcast send failed")
			conn.close()
		}
	}
}

// roomOps adapts Room to the capability interface handlers receive. All
// methods run with the room lock already held by HandleMessage.
type roomOps struct {
	room *Room
}

func (o roomOps) State() *RoomState            { return o.room.state }
func (o roomOps) HostID() string               { return o.room.hostID }
func (o roomOps) Rand() *rand.Rand             { return o.room.rng }
func (o roomOps) PersistState()                { o.room.persistState() }
func (o roomOps) PersistBackup()               { o.room.persistBackup() }
func (o roomOps) Broadcast(opts BroadcastOptions) { o.room.broadcast(opts) }
