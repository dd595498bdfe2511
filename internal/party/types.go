package party

import (
	"game-night/internal/avalon"
	"game-night/internal/codenames"
	"game-night/internal/game"
)

// RoomState is the canonical persisted state of one room. The game-state
// union is tagged by GameKind: exactly one of the per-game pointers may be
// populated, and only the one matching the tag is ever consulted.
type RoomState struct {
	GameKind  game.Kind      `json:"gameId"`
	PartyCode string         `json:"partyCode"`
	Players   []*game.Player `json:"players"`
	Started   bool           `json:"gameStarted"`

	AvalonSetup    *avalon.Setup    `json:"avalonSetup,omitempty"`
	Avalon         *avalon.State    `json:"avalonState,omitempty"`
	CodenamesSetup *codenames.Setup `json:"codenamesSetup,omitempty"`
	Codenames      *codenames.State `json:"codenamesState,omitempty"`
}

// Message is the single client-to-server wire shape. Fields are populated
// per action; pointers distinguish absent from zero-valued.
type Message struct {
	Action string `json:"action"`

	// register
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	SessionTag string `json:"sessionTag,omitempty"`

	// start_game / update_order
	Players []game.OrderUpdate `json:"players,omitempty"`

	// Avalon setup and actions
	SelectedCharacters    []string `json:"selectedCharacters,omitempty"`
	FirstPlayerFlagActive *bool    `json:"firstPlayerFlagActive,omitempty"`
	SelectedPlayers       []string `json:"selectedPlayers,omitempty"`
	Approve               *bool    `json:"approve,omitempty"`
	Success               *bool    `json:"success,omitempty"`
	TargetPlayerID        string   `json:"targetPlayerId,omitempty"`

	// Codenames setup and actions
	RedSpymasterID  string `json:"redSpymasterId,omitempty"`
	BlueSpymasterID string `json:"blueSpymasterId,omitempty"`
	WordBank        string `json:"wordBank,omitempty"`
	ClueWord        string `json:"clueWord,omitempty"`
	ClueNumber      int    `json:"clueNumber,omitempty"`
	CardIndex       *int   `json:"cardIndex,omitempty"`
}

// Client actions.
const (
	actionRegister             = "register"
	actionPong                 = "pong"
	actionStartGame            = "start_game"
	actionUpdateOrder          = "update_order"
	actionAvalonSetupUpdate    = "avalon_setup_update"
	actionCodenamesSetupUpdate = "codenames_setup_update"
	actionSelectQuestTeam      = "select_quest_team"
	actionQuestVote            = "quest_vote"
	actionQuestResult          = "quest_result"
	actionRevealResults        = "reveal_results"
	actionAssassinate          = "assassinate"
	actionSubmitClue           = "submit_clue"
	actionGuessCard            = "guess_card"
	actionEndTurn              = "end_turn"
)

// Server actions.
const (
	actionPing        = "ping"
	actionUpdateState = "update_state"
	actionError       = "error"
)

// Error reasons surfaced to clients before the socket is closed.
const (
	ReasonPartyNotFound      = "party_not_found"
	ReasonGameStarted        = "game_started"
	ReasonConnectionReplaced = "connection_replaced"
)

// BroadcastOptions adorn an update_state broadcast.
type BroadcastOptions struct {
	GameStarting bool
}
