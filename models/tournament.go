package models

import "time"

// Tournament is only read by the ranking engine, mostly for its format.
type Tournament struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Format    string    `json:"format" db:"format"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Teams   []Team         `json:"teams,omitempty" db:"-"`
	Matches []Match        `json:"matches,omitempty" db:"-"`
	Rounds  []BracketRound `json:"rounds,omitempty" db:"-"`
}

func (t Tournament) FormatGroup() FormatGroup {
	return GroupForFormat(t.Format)
}
