package avalon

// ToMap flattens GameState into a tree of primitives (map[string]any,
// []any, string, int64, bool) suitable for JSON encoding or storage in
// a key-value cache, so snapshots survive a round trip through any
// encoder.
func (s *GameState) ToMap() map[string]interface{} {
	players := make([]interface{}, len(s.Players))
	for i, p := range s.Players {
		players[i] = map[string]interface{}{
			"user_id":      p.UserID,
			"username":     p.Username,
			"display_name": p.DisplayName,
			"role":         p.Role,
			"team":         p.Team,
		}
	}

	results := make([]interface{}, len(s.MissionResults))
	for i, r := range s.MissionResults {
		results[i] = r
	}

	history := make([]interface{}, len(s.History))
	for i, rec := range s.History {
		history[i] = missionRecordToMap(rec)
	}

	m := map[string]interface{}{
		"game_id":         s.GameID,
		"room_id":         s.RoomID,
		"players":         players,
		"phase":           s.Phase,
		"round":           int64(s.Round),
		"leader_index":    int64(s.LeaderIndex),
		"vote_track":      int64(s.VoteTrack),
		"mission_results": results,
		"success_count":   int64(s.SuccessCount),
		"fail_count":      int64(s.FailCount),
		"proposed_team":   int64SliceToAny(s.ProposedTeam),
		"team_votes":      votesToMap(s.TeamVotes),
		"mission_votes":   votesToMap(s.MissionVotes),
		"mission_history": history,
		"winner_team":     s.WinnerTeam,
		"win_reason":      s.WinReason,
	}
	if s.AssassinationTarget != nil {
		m["assassination_target"] = *s.AssassinationTarget
	} else {
		m["assassination_target"] = nil
	}
	return m
}

func missionRecordToMap(rec MissionRecord) map[string]interface{} {
	return map[string]interface{}{
		"round":         int64(rec.Round),
		"team_size":     int64(rec.TeamSize),
		"leader_id":     rec.LeaderID,
		"team":          int64SliceToAny(rec.Team),
		"team_votes":    votesToMap(rec.TeamVotes),
		"mission_votes": boolSliceToAny(rec.MissionVotes),
		"outcome":       rec.Outcome,
	}
}

func int64SliceToAny(in []int64) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func boolSliceToAny(in []bool) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func votesToMap(in map[int64]bool) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[formatInt64(k)] = v
	}
	return out
}

// StateFromMap reconstructs a GameState from the tree produced by
// ToMap (or an equivalent JSON-decoded map[string]interface{}).
func StateFromMap(m map[string]interface{}) *GameState {
	s := &GameState{
		GameID:       asString(m["game_id"]),
		RoomID:       asString(m["room_id"]),
		Phase:        asString(m["phase"]),
		Round:        int(asInt64(m["round"])),
		LeaderIndex:  int(asInt64(m["leader_index"])),
		VoteTrack:    int(asInt64(m["vote_track"])),
		SuccessCount: int(asInt64(m["success_count"])),
		FailCount:    int(asInt64(m["fail_count"])),
		WinnerTeam:   asString(m["winner_team"]),
		WinReason:    asString(m["win_reason"]),
	}

	for _, raw := range asSlice(m["players"]) {
		pm, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		s.Players = append(s.Players, Player{
			UserID:      asInt64(pm["user_id"]),
			Username:    asString(pm["username"]),
			DisplayName: asString(pm["display_name"]),
			Role:        asString(pm["role"]),
			Team:        asString(pm["team"]),
		})
	}

	results := asSlice(m["mission_results"])
	for i := 0; i < len(results) && i < len(s.MissionResults); i++ {
		s.MissionResults[i] = asString(results[i])
	}

	s.ProposedTeam = asInt64Slice(m["proposed_team"])
	s.TeamVotes = asVotes(m["team_votes"])
	s.MissionVotes = asVotes(m["mission_votes"])

	for _, raw := range asSlice(m["mission_history"]) {
		rm, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		s.History = append(s.History, MissionRecord{
			Round:        int(asInt64(rm["round"])),
			TeamSize:     int(asInt64(rm["team_size"])),
			LeaderID:     asInt64(rm["leader_id"]),
			Team:         asInt64Slice(rm["team"]),
			TeamVotes:    asVotes(rm["team_votes"]),
			MissionVotes: asBoolSlice(rm["mission_votes"]),
			Outcome:      asString(rm["outcome"]),
		})
	}

	if raw, ok := m["assassination_target"]; ok && raw != nil {
		t := asInt64(raw)
		s.AssassinationTarget = &t
	}
	if s.TeamVotes == nil {
		s.TeamVotes = map[int64]bool{}
	}
	if s.MissionVotes == nil {
		s.MissionVotes = map[int64]bool{}
	}
	return s
}
