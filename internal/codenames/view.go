package codenames

// ClientState filters the board for one viewer: card types are visible only
// on revealed cards, or on every card for the active team's spymaster.
func ClientState(st *State, viewerID string) map[string]any {
	seesTypes := (viewerID == st.RedSpymasterID && st.CurrentTeam == TeamRed) ||
		(viewerID == st.BlueSpymasterID && st.CurrentTeam == TeamBlue)

	board := make([]map[string]any, 0, len(st.Board))
	for _, card := range st.Board {
		entry := map[string]any{
			"word":     card.Word,
			"revealed": card.Revealed,
		}
		if card.Revealed || seesTypes {
			entry["type"] = card.Type
		}
		board = append(board, entry)
	}

	view := map[string]any{
		"phase":             st.Phase,
		"currentTeam":       st.CurrentTeam,
		"currentClue":       st.CurrentClue,
		"board":             board,
		"redTeamRemaining":  st.RedRemaining,
		"blueTeamRemaining": st.BlueRemaining,
	}
	if st.GameEnding {
		view["gameEnding"] = true
	}
	if st.Winner != "" {
		view["winner"] = st.Winner
	}
	return view
}
