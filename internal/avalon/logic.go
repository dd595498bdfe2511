package avalon

import (
	"fmt"
	"math/rand"
	"strings"

	"game-night/internal/game"
	"game-night/internal/rules"
)

// Initialize builds the starting state for a roster whose orders have already
// been normalized to a dense 1..N sequence. Special roles come from the
// host's lobby selection; the remainder is filled with servants and minions.
func Initialize(players []*game.Player, setup Setup, rng *rand.Rand) (*State, error) {
	playerCount := len(players)
	evilCount, err := rules.EvilCount(playerCount)
	if err != nil {
		return nil, err
	}
	goodCount, _ := rules.GoodCount(playerCount)

	roles, err := assignRoles(players, setup.SelectedCharacters, evilCount, goodCount, rng)
	if err != nil {
		return nil, err
	}

	var leaderID string
	if setup.FirstPlayerLeads {
		if first := game.PlayerByOrder(players, 1); first != nil {
			leaderID = first.ID
		} else {
			leaderID = players[0].ID
		}
	} else {
		leaderID = players[rng.Intn(playerCount)].ID
	}

	teamSize, err := rules.QuestTeamSize(playerCount, 1)
	if err != nil {
		return nil, err
	}

	st := &State{
		Phase:           PhaseQuest,
		QuestNumber:     1,
		QuestLeaderID:   leaderID,
		QuestTeamIDs:    []string{},
		QuestTeamSize:   teamSize,
		QuestRejections: 0,
		CompletedQuests: []bool{},
		Roles:           roles,
		PendingVotes:    make(map[string]bool),
		PendingResults:  []bool{},
	}
	st.InstructionText = st.instruction(st.Phase, leaderID, nil, players)
	return st, nil
}

func assignRoles(players []*game.Player, selected []string, evilCount, goodCount int, rng *rand.Rand) (map[string]string, error) {
	var specialGood, specialEvil []string
	for _, role := range selected {
		switch {
		case rules.IsGoodRole(role):
			specialGood = append(specialGood, role)
		case rules.IsEvilRole(role):
			specialEvil = append(specialEvil, role)
		default:
			return nil, fmt.Errorf("%w: unknown role %q", rules.ErrInvalidParameter, role)
		}
	}
	if len(specialGood) > goodCount {
		return nil, fmt.Errorf("%w: %d good roles selected, capacity %d", rules.ErrInvalidParameter, len(specialGood), goodCount)
	}
	if len(specialEvil) > evilCount {
		return nil, fmt.Errorf("%w: %d evil roles selected, capacity %d", rules.ErrInvalidParameter, len(specialEvil), evilCount)
	}

	shuffled := make([]*game.Player, len(players))
	copy(shuffled, players)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	roles := make(map[string]string, len(players))
	idx := 0
	for _, role := range specialGood {
		roles[shuffled[idx].ID] = role
		idx++
	}
	for _, role := range specialEvil {
		roles[shuffled[idx].ID] = role
		idx++
	}
	for i := 0; i < goodCount-len(specialGood); i++ {
		roles[shuffled[idx].ID] = rules.RoleServant
		idx++
	}
	for i := 0; i < evilCount-len(specialEvil); i++ {
		roles[shuffled[idx].ID] = rules.RoleMinion
		idx++
	}
	return roles, nil
}

// SelectTeam handles the leader's quest-team proposal and moves the room to
// the voting phase.
func (st *State) SelectTeam(players []*game.Player, actorID string, selected []string) error {
	if st.Phase != PhaseQuest {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, st.Phase)
	}
	if actorID != st.QuestLeaderID {
		return fmt.Errorf("%w: only the quest leader selects the team", ErrNotYourTurn)
	}
	required, err := rules.QuestTeamSize(len(players), st.QuestNumber)
	if err != nil {
		return err
	}
	if len(selected) != required {
		return fmt.Errorf("%w: need %d players, got %d", ErrInvalidTeamSize, required, len(selected))
	}
	seen := make(map[string]bool, len(selected))
	for _, id := range selected {
		if game.FindPlayer(players, id) == nil {
			return fmt.Errorf("%w: unknown player %s on team", ErrInvalidTeamSize, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: player %s listed twice on team", ErrInvalidTeamSize, id)
		}
		seen[id] = true
	}
	st.QuestTeamIDs = selected
	st.Phase = PhaseVoting
	st.InstructionText = st.instruction(PhaseVoting, st.QuestLeaderID, nil, players)
	return nil
}

// CastVote records one player's approval vote. The last vote per player wins
// until the tally; once every seat has voted the round resolves. Ties favor
// rejection, and the fifth rejection of a quest is an immediate evil win.
func (st *State) CastVote(players []*game.Player, voterID string, approve bool) error {
	if st.Phase != PhaseVoting {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, st.Phase)
	}
	if game.FindPlayer(players, voterID) == nil {
		return fmt.Errorf("%w: unknown voter %s", ErrNotYourTurn, voterID)
	}
	st.PendingVotes[voterID] = approve
	for _, p := range players {
		_, voted := st.PendingVotes[p.ID]
		p.Voted = voted
	}
	if len(st.PendingVotes) < len(players) {
		return nil
	}

	for _, p := range players {
		p.Voted = false
	}
	approves, rejects := 0, 0
	for _, v := range st.PendingVotes {
		if v {
			approves++
		} else {
			rejects++
		}
	}
	if rejects >= approves {
		st.QuestRejections++
		if st.QuestRejections >= 5 {
			st.endGame("Evil wins! Too many quest rejections.")
			return nil
		}
		st.rotateLeader(players)
		st.QuestTeamIDs = []string{}
		st.Phase = PhaseQuest
		st.PendingVotes = make(map[string]bool)
		st.PendingResults = []bool{}
		if size, err := rules.QuestTeamSize(len(players), st.QuestNumber); err == nil {
			st.QuestTeamSize = size
		}
		st.InstructionText = st.instruction(PhaseQuest, st.QuestLeaderID, nil, players)
		return nil
	}
	// Approved. Votes are retained so the aggregate view can be shown.
	st.Phase = PhaseResults
	st.InstructionText = st.instruction(PhaseResults, st.QuestLeaderID, st.QuestTeamIDs, players)
	return nil
}

// SubmitResult records one quest-team member's success/fail decision. When
// every team member has decided, the quest is tallied against the fail
// threshold and the room moves to the revealing phase with the result order
// shuffled so submissions cannot be attributed.
func (st *State) SubmitResult(players []*game.Player, actorID string, success bool, rng *rand.Rand) error {
	if st.Phase != PhaseResults {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, st.Phase)
	}
	if !st.onTeam(actorID) {
		return fmt.Errorf("%w: only quest team members submit results", ErrNotYourTurn)
	}
	actor := game.FindPlayer(players, actorID)
	if actor == nil || actor.Decided {
		return fmt.Errorf("%w: result already submitted", ErrNotYourTurn)
	}
	actor.Decided = true
	st.PendingResults = append(st.PendingResults, success)
	if len(st.PendingResults) < len(st.QuestTeamIDs) {
		return nil
	}

	failCount := 0
	for _, r := range st.PendingResults {
		if !r {
			failCount++
		}
	}
	threshold, err := rules.QuestFailThreshold(len(players), st.QuestNumber)
	if err != nil {
		return err
	}
	questSuccess := failCount < threshold
	for len(st.CompletedQuests) < st.QuestNumber {
		st.CompletedQuests = append(st.CompletedQuests, false)
	}
	st.CompletedQuests[st.QuestNumber-1] = questSuccess

	shuffledResults := make([]bool, len(st.PendingResults))
	copy(shuffledResults, st.PendingResults)
	rng.Shuffle(len(shuffledResults), func(i, j int) {
		shuffledResults[i], shuffledResults[j] = shuffledResults[j], shuffledResults[i]
	})
	st.PendingResults = shuffledResults

	for _, p := range players {
		p.Decided = false
	}
	st.Phase = PhaseRevealing
	st.RevealEpoch++
	st.InstructionText = st.instruction(PhaseRevealing, st.QuestLeaderID, nil, players)
	return nil
}

// Reveal advances past the revealing phase: to assassination after three
// successes, to an evil win after three fails, otherwise to the next quest.
// The transition double-advances if applied twice, so repeat triggers for an
// already-consumed reveal epoch are rejected.
func (st *State) Reveal(players []*game.Player) error {
	if st.Phase != PhaseRevealing {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, st.Phase)
	}
	if st.RevealedEpoch >= st.RevealEpoch {
		return fmt.Errorf("%w: results already revealed", ErrInvalidPhase)
	}
	st.RevealedEpoch = st.RevealEpoch

	successes, fails := 0, 0
	for _, q := range st.CompletedQuests {
		if q {
			successes++
		} else {
			fails++
		}
	}
	if successes >= 3 {
		st.Phase = PhaseAssassinating
		st.InstructionText = st.instruction(PhaseAssassinating, st.QuestLeaderID, nil, players)
		return nil
	}
	if fails >= 3 {
		st.endGame("Evil wins! Three quests failed.")
		return nil
	}
	if st.QuestNumber >= rules.QuestCount {
		st.endGame("Game Over!")
		return nil
	}

	st.QuestNumber++
	st.rotateLeader(players)
	st.QuestRejections = 0
	st.QuestTeamIDs = []string{}
	st.PendingVotes = make(map[string]bool)
	st.PendingResults = []bool{}
	st.Phase = PhaseQuest
	if size, err := rules.QuestTeamSize(len(players), st.QuestNumber); err == nil {
		st.QuestTeamSize = size
	}
	st.InstructionText = st.instruction(PhaseQuest, st.QuestLeaderID, nil, players)
	return nil
}

// Assassinate resolves the assassin's guess at Merlin and ends the game.
func (st *State) Assassinate(players []*game.Player, actorID, targetID string) error {
	if st.Phase != PhaseAssassinating {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, st.Phase)
	}
	if st.Roles[actorID] != rules.RoleAssassin {
		return fmt.Errorf("%w: only the assassin may assassinate", ErrNotYourTurn)
	}
	st.AssassinatedPlayerID = targetID
	if st.Roles[targetID] == rules.RoleMerlin {
		st.endGame("Evil wins! Merlin was assassinated.")
	} else {
		st.endGame("Good wins! Merlin survived.")
	}
	return nil
}

func (st *State) endGame(text string) {
	st.Phase = PhaseEnd
	st.GameEnding = true
	st.InstructionText = text
}

// rotateLeader hands leadership to the next seat in turn order, wrapping.
// Rotation is over the start-of-game order, independent of connectivity.
func (st *State) rotateLeader(players []*game.Player) {
	current := game.FindPlayer(players, st.QuestLeaderID)
	order := 1
	if current != nil {
		order = current.Order
	}
	next := game.PlayerByOrder(players, order%len(players)+1)
	if next != nil {
		st.QuestLeaderID = next.ID
	} else {
		st.QuestLeaderID = players[0].ID
	}
}

func (st *State) instruction(phase Phase, leaderID string, teamIDs []string, players []*game.Player) string {
	name := func(id string) string {
		if p := game.FindPlayer(players, id); p != nil {
			return p.Name
		}
		return id
	}
	switch phase {
	case PhaseQuest:
		return fmt.Sprintf("%s, choose your team for quest %d", name(leaderID), st.QuestNumber)
	case PhaseVoting:
		return "Everybody vote! Approve or reject the quest team"
	case PhaseResults:
		if len(teamIDs) > 0 {
			names := make([]string, 0, len(teamIDs))
			for _, id := range teamIDs {
				names = append(names, name(id))
			}
			return fmt.Sprintf("%s, choose to succeed or fail the quest", strings.Join(names, ", "))
		}
		return "Choose to succeed or fail the quest"
	case PhaseRevealing:
		return "Host reveals quest results..."
	case PhaseAssassinating:
		return "Assassin, choose who you think is Merlin"
	case PhaseEnd:
		return "Game Over!"
	default:
		return "Unknown phase"
	}
}
