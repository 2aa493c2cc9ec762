package model

import "time"

type Goal struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"roomId"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Toggled returns the goal with completion flipped; CompletedAt is set to now
// when completing and cleared when reopening.
func (g Goal) Toggled(now time.Time) Goal {
	g.IsCompleted = !g.IsCompleted
	if g.IsCompleted {
		completedAt := now
		g.CompletedAt = &completedAt
	} else {
		g.CompletedAt = nil
	}
	return g
}
