package models

// Scope identifies the owning context for cached and persisted records.
// Team-scoped collections shadow personal ones: when TeamID is set it wins.
type Scope struct {
	UserID string
	TeamID string
}

// IsTeam returns true when the scope targets a shared team workspace
func (s Scope) IsTeam() bool {
	return s.TeamID != ""
}

// Key returns the namespace component used for cache keys and remote
// filtering: the team id when present, else the user id.
func (s Scope) Key() string {
	if s.TeamID != "" {
		return s.TeamID
	}
	return s.UserID
}

// UserScope builds a personal scope
func UserScope(userID string) Scope {
	return Scope{UserID: userID}
}

// TeamScope builds a team scope
func TeamScope(userID, teamID string) Scope {
	return Scope{UserID: userID, TeamID: teamID}
}
