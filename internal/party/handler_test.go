package party

import (
	"math/rand"
	"testing"

	"game-night/internal/game"
	"game-night/internal/rules"
)

// fakeOps satisfies RoomOps for handler tests without a live room.
type fakeOps struct {
	state      *RoomState
	hostID     string
	rng        *rand.Rand
	persists   int
	backups    int
	broadcasts []BroadcastOptions
}

func newFakeOps(state *RoomState, hostID string) *fakeOps {
	return &fakeOps{state: state, hostID: hostID, rng: rand.New(rand.NewSource(1))}
}

func (o *fakeOps) State() *RoomState { return o.state }
func (o *fakeOps) HostID() string    { return o.hostID }
func (o *fakeOps) Rand() *rand.Rand  { return o.rng }
func (o *fakeOps) PersistState()     { o.persists++ }
func (o *fakeOps) PersistBackup()    { o.backups++ }
func (o *fakeOps) Broadcast(opts BroadcastOptions) {
	o.broadcasts = append(o.broadcasts, opts)
}

func lobbyState(kind game.Kind, n int) *RoomState {
	players := make([]*game.Player, 0, n)
	for i := 0; i < n; i++ {
		players = append(players, &game.Player{
			ID:        string(rune('a' + i)),
			Name:      "Player " + string(rune('A'+i)),
			Connected: true,
		})
	}
	return &RoomState{GameKind: kind, PartyCode: "1234", Players: players}
}

func TestHandlerForKnownKindsOnly(t *testing.T) {
	if _, ok := HandlerFor(game.KindAvalon); !ok {
		t.Fatal("no handler for avalon")
	}
	if _, ok := HandlerFor(game.KindCodenames); !ok {
		t.Fatal("no handler for codenames")
	}
	if _, ok := HandlerFor(game.Kind("chess")); ok {
		t.Fatal("handler returned for unknown kind")
	}
}

func TestNormalizeOrdersDenseSequence(t *testing.T) {
	players := []*game.Player{
		{ID: "a"},
		{ID: "b"},
		{ID: "c"},
	}
	normalizeOrders(players, []game.OrderUpdate{
		{ID: "c", Order: 1},
		{ID: "a", Order: 7},
	})
	byID := map[string]int{}
	for _, p := range players {
		byID[p.ID] = p.Order
	}
	// c requested first, a requested later, b had no order so goes last.
	if byID["c"] != 1 || byID["a"] != 2 || byID["b"] != 3 {
		t.Fatalf("orders = %v, want c=1 a=2 b=3", byID)
	}
}

func TestNormalizeOrdersKeepsExistingOnPartialUpdate(t *testing.T) {
	players := []*game.Player{
		{ID: "a", Order: 2},
		{ID: "b", Order: 1},
	}
	normalizeOrders(players, nil)
	byID := map[string]int{}
	for _, p := range players {
		byID[p.ID] = p.Order
	}
	if byID["b"] != 1 || byID["a"] != 2 {
		t.Fatalf("orders = %v, want b=1 a=2", byID)
	}
}

func TestStartGameRequiresHost(t *testing.T) {
	state := lobbyState(game.KindAvalon, 5)
	ops := newFakeOps(state, "a")
	avalonHandler{}.HandleMessage(ops, state.Players[1], Message{Action: actionStartGame})
	if state.Started || state.Avalon != nil {
		t.Fatal("non-host started the game")
	}
	if len(ops.broadcasts) != 0 {
		t.Fatal("ignored action produced a broadcast")
	}
}

func TestStartGameInitializesAvalon(t *testing.T) {
	state := lobbyState(game.KindAvalon, 5)
	ops := newFakeOps(state, "a")
	yes := true
	avalonHandler{}.HandleMessage(ops, state.Players[0], Message{
		Action: actionStartGame,
		Players: []game.OrderUpdate{
			{ID: "e", Order: 1}, {ID: "d", Order: 2}, {ID: "c", Order: 3},
			{ID: "b", Order: 4}, {ID: "a", Order: 5},
		},
		SelectedCharacters:    []string{rules.RoleMerlin, rules.RoleAssassin},
		FirstPlayerFlagActive: &yes,
	})
	if !state.Started || state.Avalon == nil {
		t.Fatal("game did not start")
	}
	if state.Avalon.QuestLeaderID != "e" {
		t.Fatalf("leader = %s, want e (order 1 with first-player flag)", state.Avalon.QuestLeaderID)
	}
	if ops.backups != 1 {
		t.Fatalf("backup checkpoints = %d, want 1 at start", ops.backups)
	}
	if len(ops.broadcasts) != 1 || !ops.broadcasts[0].GameStarting {
		t.Fatalf("broadcasts = %+v, want single game-starting broadcast", ops.broadcasts)
	}
	// Setup survives into the room state for the restore path.
	if state.AvalonSetup == nil || !state.AvalonSetup.FirstPlayerLeads {
		t.Fatal("setup not recorded on room state")
	}
}

func TestStartGameRejectsSmallRoster(t *testing.T) {
	state := lobbyState(game.KindAvalon, 3)
	ops := newFakeOps(state, "a")
	avalonHandler{}.HandleMessage(ops, state.Players[0], Message{Action: actionStartGame})
	if state.Started {
		t.Fatal("game started with 3 players")
	}
}

func TestUpdateOrderRejectedAfterStart(t *testing.T) {
	state := lobbyState(game.KindAvalon, 5)
	ops := newFakeOps(state, "a")
	avalonHandler{}.HandleMessage(ops, state.Players[0], Message{Action: actionStartGame})
	if !state.Started {
		t.Fatal("game did not start")
	}
	ordersBefore := map[string]int{}
	for _, p := range state.Players {
		ordersBefore[p.ID] = p.Order
	}
	avalonHandler{}.HandleMessage(ops, state.Players[0], Message{
		Action:  actionUpdateOrder,
		Players: []game.OrderUpdate{{ID: "a", Order: 1}, {ID: "b", Order: 2}},
	})
	for _, p := range state.Players {
		if p.Order != ordersBefore[p.ID] {
			t.Fatalf("order of %s changed after start", p.ID)
		}
	}
}

func TestAvalonSetupUpdatePreStart(t *testing.T) {
	state := lobbyState(game.KindAvalon, 5)
	ops := newFakeOps(state, "a")
	avalonHandler{}.HandleMessage(ops, state.Players[0], Message{
		Action:             actionAvalonSetupUpdate,
		SelectedCharacters: []string{rules.RoleMerlin},
	})
	if state.AvalonSetup == nil || len(state.AvalonSetup.SelectedCharacters) != 1 {
		t.Fatal("setup update not applied")
	}
	if ops.persists != 1 {
		t.Fatalf("persists = %d, want 1", ops.persists)
	}

	// Non-host updates are ignored.
	avalonHandler{}.HandleMessage(ops, state.Players[1], Message{
		Action:             actionAvalonSetupUpdate,
		SelectedCharacters: []string{rules.RoleOberon},
	})
	if state.AvalonSetup.SelectedCharacters[0] != rules.RoleMerlin {
		t.Fatal("non-host setup update applied")
	}
}

func TestIllegalGameActionIsNoOp(t *testing.T) {
	state := lobbyState(game.KindAvalon, 5)
	ops := newFakeOps(state, "a")
	avalonHandler{}.HandleMessage(ops, state.Players[0], Message{Action: actionStartGame})
	persistsBefore := ops.persists
	broadcastsBefore := len(ops.broadcasts)

	leader := state.Avalon.QuestLeaderID
	var notLeader *game.Player
	for _, p := range state.Players {
		if p.ID != leader {
			notLeader = p
			break
		}
	}
	avalonHandler{}.HandleMessage(ops, notLeader, Message{
		Action:          actionSelectQuestTeam,
		SelectedPlayers: []string{"a", "b"},
	})
	if ops.persists != persistsBefore || len(ops.broadcasts) != broadcastsBefore {
		t.Fatal("rejected action persisted or broadcast")
	}
	if len(state.Avalon.QuestTeamIDs) != 0 {
		t.Fatal("rejected action mutated state")
	}
}

func TestBackupCheckpointOnlyOnPhaseChange(t *testing.T) {
	state := lobbyState(game.KindAvalon, 5)
	ops := newFakeOps(state, "a")
	avalonHandler{}.HandleMessage(ops, state.Players[0], Message{Action: actionStartGame})
	backupsAfterStart := ops.backups

	leader := game.FindPlayer(state.Players, state.Avalon.QuestLeaderID)
	avalonHandler{}.HandleMessage(ops, leader, Message{
		Action:          actionSelectQuestTeam,
		SelectedPlayers: []string{"a", "b"},
	})
	if ops.backups != backupsAfterStart+1 {
		t.Fatalf("backups after team selection = %d, want %d (phase changed)", ops.backups, backupsAfterStart+1)
	}

	// A single vote leaves the phase unchanged; no checkpoint.
	approve := true
	avalonHandler{}.HandleMessage(ops, state.Players[0], Message{Action: actionQuestVote, Approve: &approve})
	if ops.backups != backupsAfterStart+1 {
		t.Fatalf("backups after partial vote = %d, want %d", ops.backups, backupsAfterStart+1)
	}
	if ops.persists < 3 {
		t.Fatalf("snapshot persists = %d, want one per accepted action", ops.persists)
	}
}

func TestCodenamesSetupAndStart(t *testing.T) {
	state := lobbyState(game.KindCodenames, 4)
	ops := newFakeOps(state, "a")
	codenamesHandler{}.HandleMessage(ops, state.Players[0], Message{
		Action:         actionCodenamesSetupUpdate,
		RedSpymasterID: "a",
	})
	codenamesHandler{}.HandleMessage(ops, state.Players[0], Message{Action: actionStartGame})
	if state.Started {
		t.Fatal("game started without a blue spymaster")
	}
	codenamesHandler{}.HandleMessage(ops, state.Players[0], Message{
		Action:          actionCodenamesSetupUpdate,
		BlueSpymasterID: "b",
	})
	codenamesHandler{}.HandleMessage(ops, state.Players[0], Message{Action: actionStartGame})
	if !state.Started || state.Codenames == nil {
		t.Fatal("game did not start with both spymasters set")
	}
	if state.Codenames.RedSpymasterID != "a" || state.Codenames.BlueSpymasterID != "b" {
		t.Fatalf("spymasters = %s/%s", state.Codenames.RedSpymasterID, state.Codenames.BlueSpymasterID)
	}
}

func TestCodenamesPublicPayloadHidesTypes(t *testing.T) {
	state := lobbyState(game.KindCodenames, 4)
	ops := newFakeOps(state, "a")
	codenamesHandler{}.HandleMessage(ops, state.Players[0], Message{
		Action:         actionCodenamesSetupUpdate,
		RedSpymasterID: "a", BlueSpymasterID: "b",
	})
	codenamesHandler{}.HandleMessage(ops, state.Players[0], Message{Action: actionStartGame})

	payload := codenamesHandler{}.PublicPayload(state)
	board := payload["state"].(map[string]any)["board"].([]map[string]any)
	for i, entry := range board {
		if _, ok := entry["type"]; ok {
			t.Fatalf("public payload leaks type for card %d", i)
		}
	}

	view, err := codenamesHandler{}.PlayerView(state, "a")
	if err != nil {
		t.Fatalf("player view: %v", err)
	}
	spyBoard := view["state"].(map[string]any)["board"].([]map[string]any)
	if _, ok := spyBoard[0]["type"]; !ok {
		t.Fatal("active spymaster view missing card types")
	}
}
