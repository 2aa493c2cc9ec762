package view

import (
	"time"

	"focusrooms/backend/internal/model"
)

type PresenceEntry struct {
	UserID      string       `json:"userId"`
	Name        string       `json:"name"`
	JoinedAt    time.Time    `json:"joinedAt"`
	ActivePhase *model.Phase `json:"activePhase,omitempty"`
}

type Presence struct {
	Participants []PresenceEntry `json:"participants"`
	Count        int             `json:"count"`
}

// ActiveSessionMap maps each user with an open session to that session's
// phase. If a user has several open sessions the latest start wins.
func ActiveSessionMap(open []model.FocusSession) map[string]model.Phase {
	phases := make(map[string]model.Phase, len(open))
	latest := make(map[string]time.Time, len(open))
	for _, session := range open {
		if !session.Open() {
			continue
		}
		if seen, ok := latest[session.UserID]; ok && seen.After(session.StartedAt) {
			continue
		}
		latest[session.UserID] = session.StartedAt
		phases[session.UserID] = session.SessionType
	}
	return phases
}

// BuildPresence joins active participants with display names and the phase
// each is currently running, if any.
func BuildPresence(participants []model.RoomParticipant, profiles map[string]*model.Profile, active map[string]model.Phase) Presence {
	presence := Presence{Participants: make([]PresenceEntry, 0, len(participants))}
	for _, participant := range participants {
		if !participant.IsActive {
			continue
		}
		entry := PresenceEntry{
			UserID:   participant.UserID,
			Name:     profiles[participant.UserID].DisplayName(),
			JoinedAt: participant.JoinedAt,
		}
		if phase, ok := active[participant.UserID]; ok {
			p := phase
			entry.ActivePhase = &p
		}
		presence.Participants = append(presence.Participants, entry)
	}
	presence.Count = len(presence.Participants)
	return presence
}

func participantIDs(participants []model.RoomParticipant) []string {
	ids := make([]string, 0, len(participants))
	for _, participant := range participants {
		ids = append(ids, participant.UserID)
	}
	return ids
}
