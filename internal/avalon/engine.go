package avalon

import (
	"github.com/rivergate/avalon-core/internal/rulebook"
)

// Engine mutates GameState in response to player actions. It holds no
// state of its own beyond the injected RNG; callers own the GameState
// and are responsible for persisting it after each successful call.
type Engine struct {
	rng RNG
}

// NewEngine returns an Engine drawing randomness from rng. Production
// callers pass NewCryptoRNG(); tests pass NewSeededRNG(seed).
func NewEngine(rng RNG) *Engine {
	if rng == nil {
		rng = NewCryptoRNG()
	}
	return &Engine{rng: rng}
}

// InitPlayer is the minimal seating input to Initialize: identity only,
// role and team are assigned by the engine.
type InitPlayer struct {
	UserID      int64
	Username    string
	DisplayName string
}

// Initialize deals roles, fixes seating order, and starts round 1 at
// team_selection. players must number between rulebook.MinPlayers and
// rulebook.MaxPlayers.
func (e *Engine) Initialize(gameID, roomID string, players []InitPlayer) (*GameState, error) {
	n := len(players)
	if !rulebook.Valid(n) {
		return nil, newErr(KindCapacity, "player count %d out of range [%d,%d]", n, rulebook.MinPlayers, rulebook.MaxPlayers)
	}
	comp, ok := rulebook.RoleComposition(n)
	if !ok {
		return nil, newErr(KindValidation, "no role composition for %d players", n)
	}

	seats := append([]InitPlayer(nil), players...)
	e.rng.Shuffle(len(seats), func(i, j int) { seats[i], seats[j] = seats[j], seats[i] })

	roles := append(append([]string(nil), comp.Good...), comp.Evil...)
	e.rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	out := make([]Player, n)
	for i, p := range seats {
		out[i] = Player{
			UserID:      p.UserID,
			Username:    p.Username,
			DisplayName: p.DisplayName,
			Role:        roles[i],
			Team:        rulebook.Team(roles[i]),
		}
	}

	return &GameState{
		GameID:      gameID,
		RoomID:      roomID,
		Players:     out,
		Phase:       PhaseTeamSelection,
		Round:       1,
		LeaderIndex: e.rng.Intn(n),
		VoteTrack:   0,
		TeamVotes:   map[int64]bool{},
		MissionVotes: map[int64]bool{},
	}, nil
}

// ProposeTeam sets the proposed mission team for the current round. Only
// the current leader may propose, only during team_selection, and the
// team must match the required size exactly with no duplicates or
// non-players.
func (e *Engine) ProposeTeam(s *GameState, leaderID int64, team []int64) (*GameState, error) {
	if s.Phase != PhaseTeamSelection {
		return nil, newErr(KindWrongPhase, "game is in phase %s, not team_selection", s.Phase)
	}
	if s.LeaderID() != leaderID {
		return nil, newErr(KindUnauthorized, "user %d is not the current leader", leaderID)
	}
	want := rulebook.TeamSize(s.PlayerCount(), s.Round)
	if len(team) != want {
		return nil, newErr(KindValidation, "team size %d, want %d", len(team), want)
	}
	seen := make(map[int64]bool, len(team))
	for _, id := range team {
		if seen[id] {
			return nil, newErr(KindValidation, "duplicate player %d in proposed team", id)
		}
		seen[id] = true
		if !s.isPlayer(id) {
			return nil, newErr(KindValidation, "user %d is not in this game", id)
		}
	}

	next := s.Clone()
	next.ProposedTeam = append([]int64(nil), team...)
	next.TeamVotes = map[int64]bool{}
	next.Phase = PhaseTeamVote
	return next, nil
}

// VoteTeam records one player's approve/reject vote on the proposed
// team. Resolves the vote once every seated player has voted.
func (e *Engine) VoteTeam(s *GameState, userID int64, approve bool) (*GameState, error) {
	if s.Phase != PhaseTeamVote {
		return nil, newErr(KindWrongPhase, "game is in phase %s, not team_vote", s.Phase)
	}
	if !s.isPlayer(userID) {
		return nil, newErr(KindUnauthorized, "user %d is not in this game", userID)
	}
	if _, voted := s.TeamVotes[userID]; voted {
		return nil, newErr(KindDoubleAction, "user %d already voted on this team", userID)
	}

	next := s.Clone()
	next.TeamVotes[userID] = approve

	if len(next.TeamVotes) < next.PlayerCount() {
		return next, nil
	}
	return resolveTeamVote(next), nil
}

func resolveTeamVote(s *GameState) *GameState {
	approvals := 0
	for _, v := range s.TeamVotes {
		if v {
			approvals++
		}
	}
	approved := approvals*2 > s.PlayerCount() // strict majority; ties reject

	if approved {
		s.VoteTrack = 0
		s.MissionVotes = map[int64]bool{}
		s.Phase = PhaseMission
		return s
	}

	s.VoteTrack++
	if s.VoteTrack >= 5 {
		s.Phase = PhaseGameOver
		s.WinnerTeam = rulebook.TeamEvil
		s.WinReason = ReasonFiveRejections
		return s
	}

	s.ProposedTeam = nil
	s.TeamVotes = map[int64]bool{}
	s.LeaderIndex = nextLeader(s.LeaderIndex, s.PlayerCount())
	s.Phase = PhaseTeamSelection
	return s
}

func nextLeader(current, n int) int {
	return (current + 1) % n
}

// VoteMission records one mission-team member's success/fail vote.
// Good-aligned players may only vote success; the engine rejects a
// fail vote from a good player outright rather than allowing then
// silently overriding it.
func (e *Engine) VoteMission(s *GameState, userID int64, succeed bool) (*GameState, error) {
	if s.Phase != PhaseMission {
		return nil, newErr(KindWrongPhase, "game is in phase %s, not mission", s.Phase)
	}
	if !s.isOnProposedTeam(userID) {
		return nil, newErr(KindUnauthorized, "user %d is not on the mission team", userID)
	}
	if _, voted := s.MissionVotes[userID]; voted {
		return nil, newErr(KindDoubleAction, "user %d already voted on this mission", userID)
	}
	if !succeed {
		p := s.PlayerByID(userID)
		if p != nil && p.Team == rulebook.TeamGood {
			return nil, newErr(KindRuleViolation, "good-aligned players cannot vote fail")
		}
	}

	next := s.Clone()
	next.MissionVotes[userID] = succeed

	if len(next.MissionVotes) < len(next.ProposedTeam) {
		return next, nil
	}
	return resolveMission(next, e.rng), nil
}

func resolveMission(s *GameState, rng RNG) *GameState {
	fails := 0
	votes := make([]bool, 0, len(s.ProposedTeam))
	for _, id := range s.ProposedTeam {
		succeeded := s.MissionVotes[id]
		votes = append(votes, succeeded)
		if !succeeded {
			fails++
		}
	}
	rng.Shuffle(len(votes), func(i, j int) { votes[i], votes[j] = votes[j], votes[i] })

	required := rulebook.FailRequirement(s.PlayerCount(), s.Round)
	outcome := "success"
	if fails >= required {
		outcome = "fail"
	}

	s.History = append(s.History, MissionRecord{
		Round:        s.Round,
		TeamSize:     len(s.ProposedTeam),
		LeaderID:     s.LeaderID(),
		Team:         append([]int64(nil), s.ProposedTeam...),
		TeamVotes:    copyVotes(s.TeamVotes),
		MissionVotes: votes,
		Outcome:      outcome,
	})
	s.MissionResults[s.Round-1] = outcome
	if outcome == "success" {
		s.SuccessCount++
	} else {
		s.FailCount++
	}

	switch {
	case s.FailCount >= 3:
		s.Phase = PhaseGameOver
		s.WinnerTeam = rulebook.TeamEvil
		s.WinReason = ReasonThreeFailed
	case s.SuccessCount >= 3:
		s.Phase = PhaseAssassination
	default:
		s.Round++
		s.ProposedTeam = nil
		s.TeamVotes = map[int64]bool{}
		s.MissionVotes = map[int64]bool{}
		s.VoteTrack = 0
		s.LeaderIndex = nextLeader(s.LeaderIndex, s.PlayerCount())
		s.Phase = PhaseTeamSelection
	}
	return s
}

// Assassinate resolves the assassination phase: only the Assassin may
// act, and only once. Merlin's identity, not the target's team,
// decides the outcome.
func (e *Engine) Assassinate(s *GameState, assassinID, targetID int64) (*GameState, error) {
	if s.Phase != PhaseAssassination {
		return nil, newErr(KindWrongPhase, "game is in phase %s, not assassination", s.Phase)
	}
	shooter := s.PlayerByID(assassinID)
	if shooter == nil || shooter.Role != rulebook.RoleAssassin {
		return nil, newErr(KindUnauthorized, "user %d is not the assassin", assassinID)
	}
	target := s.PlayerByID(targetID)
	if target == nil {
		return nil, newErr(KindValidation, "user %d is not in this game", targetID)
	}
	if target.Team != rulebook.TeamGood {
		return nil, newErr(KindRuleViolation, "can only assassinate good team members")
	}

	next := s.Clone()
	t := targetID
	next.AssassinationTarget = &t
	next.Phase = PhaseGameOver
	if target.Role == rulebook.RoleMerlin {
		next.WinnerTeam = rulebook.TeamEvil
		next.WinReason = ReasonMerlinAssassinated
	} else {
		next.WinnerTeam = rulebook.TeamGood
		next.WinReason = ReasonMerlinSurvived
	}
	return next, nil
}
