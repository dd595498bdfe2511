package avalon

import "errors"

type Phase string

const (
	PhaseQuest         Phase = "quest"
	PhaseVoting        Phase = "voting"
	PhaseResults       Phase = "results"
	PhaseRevealing     Phase = "revealing"
	PhaseAssassinating Phase = "assassinating"
	PhaseEnd           Phase = "end"
)

var (
	ErrInvalidTeamSize = errors.New("invalid team size")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrInvalidPhase    = errors.New("action not valid in current phase")
)

// Setup is the pre-start configuration the host assembles in the lobby.
type Setup struct {
	SelectedCharacters []string `json:"specialIds"`
	FirstPlayerLeads   bool     `json:"isPlayer1Lead1st"`
}

// State is the Avalon game state. The whole struct is persisted; the
// role/vote/result maps are server-only and must never be marshalled onto
// the wire directly. Clients only ever see projections built in view.go.
type State struct {
	InstructionText      string   `json:"instructionText"`
	Phase                Phase    `json:"phase"`
	QuestNumber          int      `json:"questNumber"`
	QuestLeaderID        string   `json:"questLeader"`
	QuestTeamIDs         []string `json:"questTeam"`
	QuestTeamSize        int      `json:"questTeamSize"`
	QuestRejections      int      `json:"questSkips"`
	CompletedQuests      []bool   `json:"completedQuests"`
	AssassinatedPlayerID string   `json:"assassinatedPlayerId,omitempty"`
	GameEnding           bool     `json:"gameEnding,omitempty"`

	// Server-only data.
	Roles          map[string]string `json:"playerRoles"`
	PendingVotes   map[string]bool   `json:"questVotes"`
	PendingResults []bool            `json:"questResults"`

	// Each entry into the revealing phase bumps RevealEpoch; advancing past
	// it records the epoch in RevealedEpoch. A reveal trigger for an
	// already-consumed epoch is a duplicate and must not advance again.
	RevealEpoch   int `json:"revealEpoch"`
	RevealedEpoch int `json:"revealedEpoch"`
}

func (st *State) onTeam(playerID string) bool {
	for _, id := range st.QuestTeamIDs {
		if id == playerID {
			return true
		}
	}
	return false
}
