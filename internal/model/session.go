package model

import "time"

type Phase string

const (
	PhaseFocus      Phase = "focus"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

func (p Phase) Valid() bool {
	return p == PhaseFocus || p == PhaseShortBreak || p == PhaseLongBreak
}

// Duration is the full countdown length of the phase.
func (p Phase) Duration() time.Duration {
	switch p {
	case PhaseShortBreak:
		return 5 * time.Minute
	case PhaseLongBreak:
		return 15 * time.Minute
	default:
		return 25 * time.Minute
	}
}

func (p Phase) Seconds() int {
	return int(p.Duration() / time.Second)
}

func (p Phase) Label() string {
	switch p {
	case PhaseShortBreak:
		return "short break"
	case PhaseLongBreak:
		return "long break"
	default:
		return "focus session"
	}
}

const (
	SessionOpen      = "open"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

// FocusSession is one timed interval. EndedAt is nil while the session is
// open; DurationMinutes and PomodoroCount are only meaningful once it is set.
type FocusSession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	RoomID          string     `json:"roomId"`
	SessionType     Phase      `json:"sessionType"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	PomodoroCount   *int       `json:"pomodoroCount,omitempty"`
	Status          string     `json:"status"`
}

func (s *FocusSession) Open() bool {
	return s.EndedAt == nil
}

// SessionClose is the single mutation applied to an open session.
type SessionClose struct {
	EndedAt         time.Time
	DurationMinutes int
	PomodoroCount   int
	Status          string
}

// WholeMinutes floors the elapsed time between start and end to minutes.
func WholeMinutes(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}
