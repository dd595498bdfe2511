package party

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"game-night/internal/config"
	"game-night/internal/db"
	"game-night/internal/game"
)

const codeAttempts = 20

// Server owns the party HTTP surface: room creation and the per-room
// websocket endpoint. Rooms are created lazily on connect when only a
// snapshot or backup row survives.
type Server struct {
	cfg       config.Config
	rooms     *RoomStore
	snapshots SnapshotStore
	backup    *db.Store
	upgrader  websocket.Upgrader
}

// New builds a Server. conn may be nil, in which case the relational
// backup tier is disabled and rooms live on snapshots alone.
func New(conn *gorm.DB, cfg config.Config) *Server {
	return &Server{
		cfg:       cfg,
		rooms:     NewRoomStore(),
		snapshots: NewMemorySnapshots(),
		backup:    db.NewStore(conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Post("/game/{gameKind}/create-party", s.createParty)
	r.Get("/game/{gameKind}/party/{partyCode}", s.joinParty)
	return r
}

type createPartyRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// createParty mints a fresh room with a unique 4-digit party code. The
// creator becomes the preferred host for the room's lifetime.
func (s *Server) createParty(w http.ResponseWriter, req *http.Request) {
	kind := game.Kind(chi.URLParam(req, "gameKind"))
	if !game.ValidKind(kind) {
		http.NotFound(w, req)
		return
	}

	var body createPartyRequest
	if req.Body != nil {
		// A missing or malformed body just means an anonymous creator.
		_ = json.NewDecoder(req.Body).Decode(&body)
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := s.newPartyCode(kind)
		if err != nil {
			break
		}
		state := &RoomState{
			GameKind:  kind,
			PartyCode: code,
			Players:   []*game.Player{},
		}
		room := newRoom(state, body.ID, s.cfg, s.snapshots, s.backup, s.rooms.Delete)
		if existing := s.rooms.PutIfAbsent(room); existing != room {
			// Lost a create race on the same code. Stop the loser's sweep
			// loop without touching the shared snapshot key, then retry.
			room.mu.Lock()
			room.closed = true
			close(room.done)
			room.mu.Unlock()
			continue
		}
		room.mu.Lock()
		room.persistState()
		room.mu.Unlock()

		log.Info().Str("game", string(kind)).Str("code", code).Msg("party created")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"partyCode": code})
		return
	}
	log.Error().Str("game", string(kind)).Msg("party code allocation failed")
	http.Error(w, "could not allocate party code", http.StatusServiceUnavailable)
}

// newPartyCode draws 4-digit codes until one is unused among live rooms,
// snapshots and active backup rows.
func (s *Server) newPartyCode(kind game.Kind) (string, error) {
	var backupIDs map[string]bool
	if s.backup != nil {
		ids, err := s.backup.AllPartyIDs()
		if err != nil {
			log.Warn().Err(err).Msg("backup party id listing failed; checking live rooms only")
		} else {
			backupIDs = make(map[string]bool, len(ids))
			for _, id := range ids {
				backupIDs[id] = true
			}
		}
	}
	for i := 0; i < codeAttempts; i++ {
		// The top-level rand functions are safe for concurrent handlers.
		code := fmt.Sprintf("%04d", rand.Intn(10000))
		partyID := PartyID(kind, code)
		if s.rooms.Has(partyID) || backupIDs[partyID] {
			continue
		}
		if _, ok := s.snapshots.Get(partyID); ok {
			continue
		}
		return code, nil
	}
	return "", errors.New("no free party code after repeated attempts")
}

// joinParty upgrades to a websocket and binds the connection to the room,
// restoring the room from snapshot or backup if the coordinator restarted.
// Room existence is only reported over the socket: the upgrade succeeds
// even for unknown codes so the client gets a structured error.
func (s *Server) joinParty(w http.ResponseWriter, req *http.Request) {
	kind := game.Kind(chi.URLParam(req, "gameKind"))
	code := chi.URLParam(req, "partyCode")
	if !game.ValidKind(kind) {
		http.NotFound(w, req)
		return
	}

	sock, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn := newWSConn(sock)

	room, err := s.lookupRoom(kind, code)
	if err != nil {
		conn.sendError(ReasonPartyNotFound, "No party with this code exists.")
		conn.close()
		return
	}

	go s.readLoop(room, conn)
}

func (s *Server) readLoop(room *Room, conn *wsConn) {
	defer room.Disconnect(conn)
	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Str("conn", conn.id).Msg("dropping undecodable message")
			continue
		}
		room.HandleMessage(conn, msg)
	}
}

// lookupRoom resolves live room -> snapshot -> backup, reviving the room on
// the later tiers. A revived snapshot room still checks the backup in case
// the game started before the last restart.
func (s *Server) lookupRoom(kind game.Kind, code string) (*Room, error) {
	partyID := PartyID(kind, code)
	if room, ok := s.rooms.Get(partyID); ok {
		return room, nil
	}

	state, err := s.restoreState(partyID)
	if err != nil {
		return nil, err
	}
	if state.GameKind != kind || state.PartyCode != code {
		return nil, errors.New("restored state does not match party identity")
	}
	// Restored seats start disconnected until their players re-register.
	now := time.Now().UnixMilli()
	for _, p := range state.Players {
		if p.Connected {
			p.Connected = false
			p.DisconnectedAt = now
		}
	}

	room := newRoom(state, "", s.cfg, s.snapshots, s.backup, s.rooms.Delete)
	if existing := s.rooms.PutIfAbsent(room); existing != room {
		room.mu.Lock()
		room.closed = true
		close(room.done)
		room.mu.Unlock()
		return existing, nil
	}
	room.adoptBackupIfStarted()
	log.Info().Str("party", partyID).Bool("started", room.Started()).Msg("room restored")
	return room, nil
}

func (s *Server) restoreState(partyID string) (*RoomState, error) {
	if data, ok := s.snapshots.Get(partyID); ok {
		var state RoomState
		if err := json.Unmarshal(data, &state); err == nil {
			return &state, nil
		} else {
			log.Error().Err(err).Str("party", partyID).Msg("snapshot unmarshal failed; trying backup")
		}
	}
	if s.backup == nil {
		return nil, errors.New("party not found")
	}
	data, err := s.backup.LoadActive(partyID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("party not found")
	}
	var state RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
