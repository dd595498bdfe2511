package rules

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is returned for player counts or quest numbers outside
// the supported ranges. Callers must not default around it.
var ErrInvalidParameter = errors.New("invalid parameter")

const (
	MinPlayers = 5
	MaxPlayers = 10
	QuestCount = 5
)

// Avalon role identifiers.
const (
	RoleMerlin   = "merlin"
	RolePercival = "percival"
	RoleServant  = "servant"
	RoleAssassin = "assassin"
	RoleMorgana  = "morgana"
	RoleMordred  = "mordred"
	RoleOberon   = "oberon"
	RoleMinion   = "minion"
)

// questTeamSizes[q-1][p-5] is the quest team size for quest q with p players.
var questTeamSizes = [QuestCount][6]int{
	{2, 2, 2, 3, 3, 3},
	{3, 3, 3, 4, 4, 4},
	{2, 4, 3, 4, 4, 4},
	{3, 3, 4, 5, 5, 5},
	{3, 4, 4, 5, 5, 5},
}

// questFailThresholds[q-1][p-5] is the number of fail results needed to fail
// quest q with p players. Only quest 4 with 8+ players requires two.
var questFailThresholds = [QuestCount][6]int{
	{1, 1, 1, 1, 1, 1},
	{1, 1, 1, 1, 1, 1},
	{1, 1, 1, 1, 1, 1},
	{1, 1, 1, 2, 2, 2},
	{1, 1, 1, 1, 1, 1},
}

// evilCounts[p-5] is the number of evil-aligned roles with p players.
var evilCounts = [6]int{2, 2, 3, 3, 3, 4}

var goodRoles = []string{RoleMerlin, RolePercival, RoleServant}

var evilRoles = []string{RoleAssassin, RoleMorgana, RoleMordred, RoleOberon, RoleMinion}

func checkRange(playerCount, questNumber int) error {
	if playerCount < MinPlayers || playerCount > MaxPlayers {
		return fmt.Errorf("%w: player count %d, must be between %d-%d", ErrInvalidParameter, playerCount, MinPlayers, MaxPlayers)
	}
	if questNumber < 1 || questNumber > QuestCount {
		return fmt.Errorf("%w: quest number %d, must be between 1-%d", ErrInvalidParameter, questNumber, QuestCount)
	}
	return nil
}

// QuestTeamSize returns the required team size for the given quest.
func QuestTeamSize(playerCount, questNumber int) (int, error) {
	if err := checkRange(playerCount, questNumber); err != nil {
		return 0, err
	}
	return questTeamSizes[questNumber-1][playerCount-MinPlayers], nil
}

// QuestFailThreshold returns how many fail results fail the given quest.
func QuestFailThreshold(playerCount, questNumber int) (int, error) {
	if err := checkRange(playerCount, questNumber); err != nil {
		return 0, err
	}
	return questFailThresholds[questNumber-1][playerCount-MinPlayers], nil
}

// EvilCount returns the number of evil-aligned roles for the player count.
func EvilCount(playerCount int) (int, error) {
	if playerCount < MinPlayers || playerCount > MaxPlayers {
		return 0, fmt.Errorf("%w: player count %d, must be between %d-%d", ErrInvalidParameter, playerCount, MinPlayers, MaxPlayers)
	}
	return evilCounts[playerCount-MinPlayers], nil
}

// GoodCount returns the number of good-aligned roles for the player count.
func GoodCount(playerCount int) (int, error) {
	evil, err := EvilCount(playerCount)
	if err != nil {
		return 0, err
	}
	return playerCount - evil, nil
}

func IsGoodRole(role string) bool {
	for _, r := range goodRoles {
		if r == role {
			return true
		}
	}
	return false
}

func IsEvilRole(role string) bool {
	for _, r := range evilRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Visibility describes what a role is allowed to learn about other players:
// the set of roles it can see, and the disguised role those sightings resolve
// to. Roles absent from the table see nobody.
type Visibility struct {
	CanSee    []string
	AppearsAs string
}

var visibilityRules = map[string]Visibility{
	// Merlin sees all evils except mordred, each disguised as a minion.
	RoleMerlin:   {CanSee: []string{RoleAssassin, RoleMorgana, RoleOberon, RoleMinion}, AppearsAs: RoleMinion},
	RolePercival: {CanSee: []string{RoleMerlin, RoleMorgana}, AppearsAs: RoleMerlin},
	RoleAssassin: {CanSee: []string{RoleMorgana, RoleMordred, RoleMinion}, AppearsAs: RoleMinion},
	RoleMorgana:  {CanSee: []string{RoleAssassin, RoleMordred, RoleMinion}, AppearsAs: RoleMinion},
	RoleMordred:  {CanSee: []string{RoleAssassin, RoleMorgana, RoleMinion}, AppearsAs: RoleMinion},
}

// RoleVisibility returns the visibility rule for a role. The second return is
// false when the role sees nothing.
func RoleVisibility(role string) (Visibility, bool) {
	vis, ok := visibilityRules[role]
	return vis, ok
}

// SeenAs resolves how otherRole appears to viewerRole. The second return is
// false when the viewer cannot see that role at all.
func SeenAs(viewerRole, otherRole string) (string, bool) {
	vis, ok := visibilityRules[viewerRole]
	if !ok {
		return "", false
	}
	for _, visible := range vis.CanSee {
		if visible == otherRole {
			return vis.AppearsAs, true
		}
	}
	return "", false
}
