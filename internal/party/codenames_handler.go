package party

import (
	"github.com/rs/zerolog/log"

	"game-night/internal/codenames"
	"game-night/internal/game"
)

type codenamesHandler struct{}

func (codenamesHandler) PerPlayerViews() bool { return true }

func (codenamesHandler) HandleMessage(ops RoomOps, player *game.Player, msg Message) {
	state := ops.State()
	switch msg.Action {
	case actionStartGame:
		if player.ID != ops.HostID() {
			log.Warn().Str("party", state.PartyCode).Str("player", player.ID).Msg("start_game from non-host ignored")
			return
		}
		if state.Started {
			return
		}
		normalizeOrders(state.Players, msg.Players)
		setup := codenamesSetup(state)
		applyCodenamesSetup(setup, msg)
		st, err := codenames.Initialize(*setup, ops.Rand())
		if err != nil {
			log.Warn().Err(err).Str("party", state.PartyCode).Msg("codenames start rejected")
			return
		}
		state.Codenames = st
		state.Started = true
		ops.PersistState()
		ops.PersistBackup()
		ops.Broadcast(BroadcastOptions{GameStarting: true})

	case actionUpdateOrder:
		if player.ID != ops.HostID() {
			log.Warn().Str("party", state.PartyCode).Str("player", player.ID).Msg("update_order from non-host ignored")
			return
		}
		if state.Started {
			log.Warn().Str("party", state.PartyCode).Msg("update_order after start rejected")
			return
		}
		normalizeOrders(state.Players, msg.Players)
		ops.PersistState()
		ops.PersistBackup()
		ops.Broadcast(BroadcastOptions{})

	case actionCodenamesSetupUpdate:
		if player.ID != ops.HostID() || state.Started {
			return
		}
		applyCodenamesSetup(codenamesSetup(state), msg)
		ops.PersistState()
		ops.Broadcast(BroadcastOptions{})

	case actionSubmitClue, actionGuessCard, actionEndTurn:
		if !state.Started || state.Codenames == nil {
			return
		}
		applyCodenamesAction(ops, state, player, msg)
	}
}

func applyCodenamesAction(ops RoomOps, state *RoomState, player *game.Player, msg Message) {
	st := state.Codenames
	phaseBefore := st.Phase
	var err error
	switch msg.Action {
	case actionSubmitClue:
		err = st.SubmitClue(player.ID, msg.ClueWord, msg.ClueNumber)
	case actionGuessCard:
		if msg.CardIndex == nil {
			return
		}
		err = st.GuessCard(*msg.CardIndex)
	case actionEndTurn:
		if st.Phase != codenames.PhaseGuessing {
			return
		}
		st.EndTurn()
	}
	if err != nil {
		log.Debug().Err(err).Str("party", state.PartyCode).Str("player", player.ID).Str("game_action", msg.Action).Msg("codenames action ignored")
		return
	}
	ops.PersistState()
	if st.Phase != phaseBefore {
		ops.PersistBackup()
	}
	ops.Broadcast(BroadcastOptions{})
}

func (codenamesHandler) PlayerView(state *RoomState, viewerID string) (map[string]any, error) {
	if state.Started && state.Codenames != nil {
		return map[string]any{
			"state":   codenames.ClientState(state.Codenames, viewerID),
			"players": publicPlayers(state.Players),
		}, nil
	}
	return codenamesHandler{}.PublicPayload(state), nil
}

func (codenamesHandler) PublicPayload(state *RoomState) map[string]any {
	payload := map[string]any{
		"players": publicPlayers(state.Players),
	}
	if state.Started && state.Codenames != nil {
		// The empty viewer id matches no spymaster, so only revealed card
		// types are included.
		payload["state"] = codenames.ClientState(state.Codenames, "")
	} else if state.CodenamesSetup != nil {
		payload["state"] = state.CodenamesSetup
	}
	return payload
}

func codenamesSetup(state *RoomState) *codenames.Setup {
	if state.CodenamesSetup == nil {
		state.CodenamesSetup = &codenames.Setup{}
	}
	return state.CodenamesSetup
}

func applyCodenamesSetup(setup *codenames.Setup, msg Message) {
	if msg.RedSpymasterID != "" {
		setup.RedSpymasterID = msg.RedSpymasterID
	}
	if msg.BlueSpymasterID != "" {
		setup.BlueSpymasterID = msg.BlueSpymasterID
	}
	if msg.WordBank != "" {
		setup.WordBank = msg.WordBank
	}
}

func publicPlayers(players []*game.Player) []map[string]any {
	entries := make([]map[string]any, 0, len(players))
	for _, p := range players {
		entries = append(entries, p.PublicEntry())
	}
	return entries
}
