package codenames

import "errors"

type Phase string

const (
	PhaseClue     Phase = "clue"
	PhaseGuessing Phase = "guessing"
	PhaseEnd      Phase = "end"
)

type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

type CardType string

const (
	CardRed      CardType = "red"
	CardBlue     CardType = "blue"
	CardNeutral  CardType = "neutral"
	CardAssassin CardType = "assassin"
)

// Board composition: 9 red, 8 blue, 7 neutral, 1 assassin.
const (
	BoardSize     = 25
	redCards      = 9
	blueCards     = 8
	neutralCards  = 7
	assassinCards = 1
)

var (
	ErrMissingSetup = errors.New("missing setup")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrInvalidGuess = errors.New("invalid guess")
	ErrInvalidPhase = errors.New("action not valid in current phase")
)

// Setup is the pre-start configuration: both spymasters must be chosen
// before the game can be initialized.
type Setup struct {
	RedSpymasterID  string `json:"redSpymasterId"`
	BlueSpymasterID string `json:"blueSpymasterId"`
	WordBank        string `json:"wordBank"`
}

type Card struct {
	Word     string   `json:"word"`
	Revealed bool     `json:"revealed"`
	Type     CardType `json:"type,omitempty"`
}

type Clue struct {
	Word   string `json:"word"`
	Number int    `json:"number"`
}

// State is the Codenames game state. The full board (with card types) and
// the card-type map are server-only; clients receive the filtered board
// built in view.go.
type State struct {
	Phase         Phase `json:"phase"`
	CurrentTeam   Team  `json:"currentTeam"`
	CurrentClue   *Clue `json:"currentClue"`
	Board         []Card `json:"board"`
	RedRemaining  int    `json:"redTeamRemaining"`
	BlueRemaining int    `json:"blueTeamRemaining"`
	GameEnding    bool   `json:"gameEnding,omitempty"`
	Winner        Team   `json:"winner,omitempty"`

	// Server-only data.
	CardTypes       map[int]CardType `json:"wordMap"`
	RedSpymasterID  string           `json:"redSpymasterId"`
	BlueSpymasterID string           `json:"blueSpymasterId"`
}

func otherTeam(team Team) Team {
	if team == TeamRed {
		return TeamBlue
	}
	return TeamRed
}
