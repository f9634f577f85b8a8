package avalon

import "github.com/rivergate/avalon-core/internal/rulebook"

// PlayerView is the per-player projection of GameState: public state
// plus exactly the hidden information that player's role is allowed to
// see. Never serialize GameState directly to a client; always go
// through GetPlayerView.
type PlayerView struct {
	GameID      string   `json:"game_id"`
	RoomID      string   `json:"room_id"`
	Phase       string   `json:"phase"`
	Round       int      `json:"round"`
	LeaderID    int64    `json:"leader_id"`
	VoteTrack   int      `json:"vote_track"`
	Players     []PublicPlayer `json:"players"`
	MissionResults [rulebook.Rounds]string `json:"mission_results"`
	ProposedTeam []int64 `json:"proposed_team"`

	MyRole string `json:"my_role"`
	MyTeam string `json:"my_team"`

	// KnownInfo is the per-player visibility projection: every other
	// seat this player's role entitles them to recognize, tagged with
	// why. Never contains the viewer's own user id.
	KnownInfo []KnownInfoEntry `json:"known_info"`

	CanAct            bool     `json:"can_act"`
	AvailableActions  []string `json:"available_actions"`

	WinnerTeam string `json:"winner_team,omitempty"`
	WinReason  string `json:"win_reason,omitempty"`
}

// KnownInfoEntry is one seat a player's role lets them recognize.
// InfoTag is one of "evil" (Merlin's view), "merlin_or_morgana"
// (Percival's view), or "evil_teammate" (an evil player's view of
// their own side).
type KnownInfoEntry struct {
	UserID      int64  `json:"user_id"`
	InfoTag     string `json:"info_tag"`
	DisplayName string `json:"display_name"`
}

const (
	InfoTagEvil            = "evil"
	InfoTagMerlinOrMorgana = "merlin_or_morgana"
	InfoTagEvilTeammate    = "evil_teammate"
)

// PublicPlayer is the seat information visible to every participant,
// carrying no role/team data.
type PublicPlayer struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// GetPlayerView projects s into exactly what userID is entitled to see.
func GetPlayerView(s *GameState, userID int64) (PlayerView, error) {
	me := s.PlayerByID(userID)
	if me == nil {
		return PlayerView{}, newErr(KindNotFound, "user %d is not in this game", userID)
	}

	v := PlayerView{
		GameID:         s.GameID,
		RoomID:         s.RoomID,
		Phase:          s.Phase,
		Round:          s.Round,
		LeaderID:       s.LeaderID(),
		VoteTrack:      s.VoteTrack,
		MissionResults: s.MissionResults,
		ProposedTeam:   append([]int64(nil), s.ProposedTeam...),
		MyRole:         me.Role,
		MyTeam:         me.Team,
		WinnerTeam:     s.WinnerTeam,
		WinReason:      s.WinReason,
	}
	for _, p := range s.Players {
		v.Players = append(v.Players, PublicPlayer{UserID: p.UserID, Username: p.Username, DisplayName: p.DisplayName})
	}

	v.KnownInfo = knownInfo(s, me)
	v.CanAct = canAct(s, userID)
	v.AvailableActions = availableActions(s, userID)
	return v, nil
}

// knownInfo implements the exact visibility rules: Merlin sees all evil
// except Mordred, tagged evil; Percival sees Merlin and Morgana
// indistinguishably, tagged merlin_or_morgana; evil players other than
// Oberon see each other, tagged evil_teammate; Oberon sees and is seen
// by no one.
func knownInfo(s *GameState, me *Player) []KnownInfoEntry {
	var out []KnownInfoEntry
	switch me.Role {
	case rulebook.RoleMerlin:
		for _, p := range s.Players {
			if p.Team == rulebook.TeamEvil && p.Role != rulebook.RoleMordred {
				out = append(out, KnownInfoEntry{UserID: p.UserID, InfoTag: InfoTagEvil, DisplayName: p.DisplayName})
			}
		}

	case rulebook.RolePercival:
		for _, p := range s.Players {
			if p.Role == rulebook.RoleMerlin || p.Role == rulebook.RoleMorgana {
				out = append(out, KnownInfoEntry{UserID: p.UserID, InfoTag: InfoTagMerlinOrMorgana, DisplayName: p.DisplayName})
			}
		}

	case rulebook.RoleOberon:
		// sees and is seen by no one

	default:
		if me.Team == rulebook.TeamEvil {
			for _, p := range s.Players {
				if p.UserID == me.UserID {
					continue
				}
				if p.Team == rulebook.TeamEvil && p.Role != rulebook.RoleOberon {
					out = append(out, KnownInfoEntry{UserID: p.UserID, InfoTag: InfoTagEvilTeammate, DisplayName: p.DisplayName})
				}
			}
		}
	}
	return out
}

// canAct reports whether userID has a pending decision to make in the
// current phase.
func canAct(s *GameState, userID int64) bool {
	switch s.Phase {
	case PhaseTeamSelection:
		return s.LeaderID() == userID
	case PhaseTeamVote:
		if !s.isPlayer(userID) {
			return false
		}
		_, voted := s.TeamVotes[userID]
		return !voted
	case PhaseMission:
		if !s.isOnProposedTeam(userID) {
			return false
		}
		_, voted := s.MissionVotes[userID]
		return !voted
	case PhaseAssassination:
		p := s.PlayerByID(userID)
		return p != nil && p.Role == rulebook.RoleAssassin
	default:
		return false
	}
}

func availableActions(s *GameState, userID int64) []string {
	if !canAct(s, userID) {
		return nil
	}
	switch s.Phase {
	case PhaseTeamSelection:
		return []string{"propose_team"}
	case PhaseTeamVote:
		return []string{"vote_team"}
	case PhaseMission:
		p := s.PlayerByID(userID)
		if p != nil && p.Team == rulebook.TeamEvil {
			return []string{"vote_mission_success", "vote_mission_fail"}
		}
		return []string{"vote_mission_success"}
	case PhaseAssassination:
		return []string{"assassinate"}
	default:
		return nil
	}
}
