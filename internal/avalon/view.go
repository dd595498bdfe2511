package avalon

import (
	"fmt"

	"game-night/internal/game"
	"game-night/internal/rules"
)

// PlayerView projects the state down to what one player may see, as the
// "state" and "players" portions of an update_state payload. Role
// information for other players is resolved through the visibility table and
// its disguise mapping; once the game has ended every true role is revealed.
func PlayerView(st *State, players []*game.Player, viewerID string) (map[string]any, error) {
	viewerRole, ok := st.Roles[viewerID]
	if !ok {
		return nil, fmt.Errorf("player %s not found in game state", viewerID)
	}

	visible := make([]map[string]any, 0, len(players))
	for _, p := range players {
		entry := p.PublicEntry()
		role, hasRole := st.Roles[p.ID]
		switch {
		case !hasRole:
		case st.Phase == PhaseEnd:
			entry["specialId"] = role
		case p.ID == viewerID:
			entry["specialId"] = role
		default:
			if seenAs, canSee := rules.SeenAs(viewerRole, role); canSee {
				entry["specialId"] = seenAs
			}
		}
		visible = append(visible, entry)
	}

	return map[string]any{
		"state":   clientState(st, players),
		"players": visible,
	}, nil
}

// PublicView is the role-free projection used as the fallback when a
// per-player view cannot be built. End-of-game identity reveal still applies.
func PublicView(st *State, players []*game.Player) map[string]any {
	visible := make([]map[string]any, 0, len(players))
	for _, p := range players {
		entry := p.PublicEntry()
		if st.Phase == PhaseEnd {
			if role, ok := st.Roles[p.ID]; ok {
				entry["specialId"] = role
			}
		}
		visible = append(visible, entry)
	}
	return map[string]any{
		"state":   clientState(st, players),
		"players": visible,
	}
}

func clientState(st *State, players []*game.Player) map[string]any {
	view := map[string]any{
		"instructionText": st.InstructionText,
		"phase":           st.Phase,
		"questNumber":     st.QuestNumber,
		"questLeader":     st.QuestLeaderID,
		"questTeam":       st.QuestTeamIDs,
		"questSkips":      st.QuestRejections,
		"completedQuests": st.CompletedQuests,
		"questTeamSize":   st.QuestTeamSize,
	}
	if st.GameEnding {
		view["gameEnding"] = true
	}
	if st.AssassinatedPlayerID != "" {
		view["assassinatedPlayerId"] = st.AssassinatedPlayerID
	}
	mergeAggregates(view, st, players)
	return view
}

// mergeAggregates adds the vote map once every connected player has voted,
// and the (shuffled) result list once every team member has submitted.
func mergeAggregates(view map[string]any, st *State, players []*game.Player) {
	connected := 0
	for _, p := range players {
		if p.Connected {
			connected++
		}
	}
	if len(st.PendingVotes) > 0 && len(st.PendingVotes) >= connected {
		votes := make(map[string]bool, len(st.PendingVotes))
		for id, v := range st.PendingVotes {
			votes[id] = v
		}
		view["questVotes"] = votes
	}
	if len(st.QuestTeamIDs) > 0 && len(st.PendingResults) >= len(st.QuestTeamIDs) {
		results := make([]bool, len(st.PendingResults))
		copy(results, st.PendingResults)
		view["questResults"] = results
	}
}
