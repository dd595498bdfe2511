package codenames

import (
	"fmt"
	"math/rand"
	"strings"
)

// Initialize builds a fresh board from the selected word bank. Both
// spymasters must already be chosen. Red always moves first, matching its
// extra card.
func Initialize(setup Setup, rng *rand.Rand) (*State, error) {
	if setup.RedSpymasterID == "" || setup.BlueSpymasterID == "" {
		return nil, fmt.Errorf("%w: both spymasters must be selected before starting the game", ErrMissingSetup)
	}

	words, err := randomWords(BoardSize, setup.WordBank, rng)
	if err != nil {
		return nil, err
	}
	cardTypes := dealCardTypes(rng)

	board := make([]Card, BoardSize)
	for i, word := range words {
		board[i] = Card{Word: word, Type: cardTypes[i]}
	}

	return &State{
		Phase:           PhaseClue,
		CurrentTeam:     TeamRed,
		Board:           board,
		RedRemaining:    redCards,
		BlueRemaining:   blueCards,
		CardTypes:       cardTypes,
		RedSpymasterID:  setup.RedSpymasterID,
		BlueSpymasterID: setup.BlueSpymasterID,
	}, nil
}

func dealCardTypes(rng *rand.Rand) map[int]CardType {
	deck := make([]CardType, 0, BoardSize)
	for i := 0; i < redCards; i++ {
		deck = append(deck, CardRed)
	}
	for i := 0; i < blueCards; i++ {
		deck = append(deck, CardBlue)
	}
	for i := 0; i < neutralCards; i++ {
		deck = append(deck, CardNeutral)
	}
	for i := 0; i < assassinCards; i++ {
		deck = append(deck, CardAssassin)
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	cardTypes := make(map[int]CardType, BoardSize)
	for i, t := range deck {
		cardTypes[i] = t
	}
	return cardTypes
}

// SubmitClue records the active spymaster's clue and opens guessing.
func (st *State) SubmitClue(actorID, clueWord string, clueNumber int) error {
	if st.Phase != PhaseClue {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, st.Phase)
	}
	if actorID != st.currentSpymasterID() {
		return fmt.Errorf("%w: not your turn to give a clue", ErrNotYourTurn)
	}
	remaining := st.RedRemaining
	if st.CurrentTeam == TeamBlue {
		remaining = st.BlueRemaining
	}
	if clueNumber > remaining {
		return fmt.Errorf("%w: clue number cannot exceed remaining %s team cards (%d)", ErrInvalidGuess, st.CurrentTeam, remaining)
	}
	st.CurrentClue = &Clue{Word: strings.ToUpper(clueWord), Number: clueNumber}
	st.Phase = PhaseGuessing
	return nil
}

// GuessCard reveals a card. A hit on the active team's color keeps the turn
// going (and can win); neutral or opposing colors end the turn; the assassin
// hands the win to the other team immediately.
func (st *State) GuessCard(cardIndex int) error {
	if st.Phase != PhaseGuessing {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, st.Phase)
	}
	if cardIndex < 0 || cardIndex >= len(st.Board) || st.Board[cardIndex].Revealed {
		return fmt.Errorf("%w: invalid card or card already revealed", ErrInvalidGuess)
	}
	st.Board[cardIndex].Revealed = true

	switch st.CardTypes[cardIndex] {
	case CardType(st.CurrentTeam):
		if st.CurrentTeam == TeamRed {
			st.RedRemaining--
		} else {
			st.BlueRemaining--
		}
		if st.RedRemaining == 0 {
			st.endGame(TeamRed)
		} else if st.BlueRemaining == 0 {
			st.endGame(TeamBlue)
		}
	case CardAssassin:
		st.endGame(otherTeam(st.CurrentTeam))
	default:
		// Neutral or the opposing team's card.
		st.EndTurn()
	}
	return nil
}

// EndTurn passes play to the other team and clears the current clue.
func (st *State) EndTurn() {
	st.Phase = PhaseClue
	st.CurrentTeam = otherTeam(st.CurrentTeam)
	st.CurrentClue = nil
}

func (st *State) endGame(winner Team) {
	st.Phase = PhaseEnd
	st.GameEnding = true
	st.Winner = winner
}

func (st *State) currentSpymasterID() string {
	if st.CurrentTeam == TeamRed {
		return st.RedSpymasterID
	}
	return st.BlueSpymasterID
}
