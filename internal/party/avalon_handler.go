package party

import (
	"github.com/rs/zerolog/log"

	"game-night/internal/avalon"
	"game-night/internal/game"
)

type avalonHandler struct{}

func (avalonHandler) PerPlayerViews() bool { return true }

func (avalonHandler) HandleMessage(ops RoomOps, player *game.Player, msg Message) {
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
		setup := avalonSetup(state)
		if msg.SelectedCharacters != nil {
			setup.SelectedCharacters = msg.SelectedCharacters
		}
		if msg.FirstPlayerFlagActive != nil {
			setup.FirstPlayerLeads = *msg.FirstPlayerFlagActive
		}
		st, err := avalon.Initialize(state.Players, *setup, ops.Rand())
		if err != nil {
			log.Warn().Err(err).Str("party", state.PartyCode).Msg("avalon start rejected")
			return
		}
		state.Avalon = st
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

	case actionAvalonSetupUpdate:
		if player.ID != ops.HostID() || state.Started {
			return
		}
		setup := avalonSetup(state)
		if msg.SelectedCharacters != nil {
			setup.SelectedCharacters = msg.SelectedCharacters
		}
		if msg.FirstPlayerFlagActive != nil {
			setup.FirstPlayerLeads = *msg.FirstPlayerFlagActive
		}
		ops.PersistState()
		ops.Broadcast(BroadcastOptions{})

	case actionSelectQuestTeam, actionQuestVote, actionQuestResult, actionRevealResults, actionAssassinate:
		if !state.Started || state.Avalon == nil {
			return
		}
		applyAvalonAction(ops, state, player, msg)
	}
}

func applyAvalonAction(ops RoomOps, state *RoomState, player *game.Player, msg Message) {
	st := state.Avalon
	phaseBefore := st.Phase
	var err error
	switch msg.Action {
	case actionSelectQuestTeam:
		err = st.SelectTeam(state.Players, player.ID, msg.SelectedPlayers)
	case actionQuestVote:
		if msg.Approve == nil {
			return
		}
		err = st.CastVote(state.Players, player.ID, *msg.Approve)
	case actionQuestResult:
		if msg.Success == nil {
			return
		}
		err = st.SubmitResult(state.Players, player.ID, *msg.Success, ops.Rand())
	case actionRevealResults:
		err = st.Reveal(state.Players)
	case actionAssassinate:
		err = st.Assassinate(state.Players, player.ID, msg.TargetPlayerID)
	}
	if err != nil {
		log.Debug().Err(err).Str("party", state.PartyCode).Str("player", player.ID).Str("game_action", msg.Action).Msg("avalon action ignored")
		return
	}
	ops.PersistState()
	if st.Phase != phaseBefore {
		ops.PersistBackup()
	}
	ops.Broadcast(BroadcastOptions{})
}

func (avalonHandler) PlayerView(state *RoomState, viewerID string) (map[string]any, error) {
	if state.Started && state.Avalon != nil {
		return avalon.PlayerView(state.Avalon, state.Players, viewerID)
	}
	return avalonHandler{}.PublicPayload(state), nil
}

func (avalonHandler) PublicPayload(state *RoomState) map[string]any {
	if state.Started && state.Avalon != nil {
		return avalon.PublicView(state.Avalon, state.Players)
	}
	payload := map[string]any{
		"players": publicPlayers(state.Players),
	}
	if state.AvalonSetup != nil {
		payload["state"] = state.AvalonSetup
	}
	return payload
}

func avalonSetup(state *RoomState) *avalon.Setup {
	if state.AvalonSetup == nil {
		state.AvalonSetup = &avalon.Setup{}
	}
	return state.AvalonSetup
}
