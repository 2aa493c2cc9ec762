package model

import "time"

type ActivityType string

const (
	ActivitySessionStart ActivityType = "session_start"
	ActivitySessionEnd   ActivityType = "session_end"
	ActivityGoalComplete ActivityType = "goal_complete"
	ActivityJoin         ActivityType = "join"
	ActivityLeave        ActivityType = "leave"
)

// Activity is an ephemeral, per-viewer room event line. It is never stored.
type Activity struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	UserID    string       `json:"userId"`
	UserName  string       `json:"userName"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}
