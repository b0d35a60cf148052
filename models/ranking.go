package models

import "time"

// RankingEntry is the cumulative ledger row of a team, one per team.
type RankingEntry struct {
	ID                int       `json:"id" db:"id"`
	TeamID            int       `json:"team_id" db:"team_id"`
	Points            int       `json:"points" db:"points"`
	Wins              int       `json:"wins" db:"wins"`
	Losses            int       `json:"losses" db:"losses"`
	TournamentsPlayed int       `json:"tournaments_played" db:"tournaments_played"`
	LastUpdated       time.Time `json:"last_updated" db:"last_updated"`

	// Populated by joins, not stored in team_rankings.
	TeamName string `json:"team_name,omitempty" db:"-"`
	Format   string `json:"format,omitempty" db:"-"`
}

// RankingChange describes a points adjustment made by a correction job.
type RankingChange struct {
	TeamID      int    `json:"team_id"`
	TeamName    string `json:"team_name,omitempty"`
	Format      string `json:"format,omitempty"`
	Position    int    `json:"position,omitempty"`
	OldPoints   int    `json:"old_points"`
	NewPoints   int    `json:"new_points"`
	PointsAdded int    `json:"points_added"`
}
