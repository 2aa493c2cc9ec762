package model

import "time"

const (
	MinRoomParticipants     = 2
	MaxRoomParticipants     = 50
	DefaultRoomParticipants = 10
)

type Room struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      *string   `json:"description,omitempty"`
	CreatorID        string    `json:"creatorId"`
	MaxParticipants  int       `json:"maxParticipants"`
	IsPublic         bool      `json:"isPublic"`
	CreatedAt        time.Time `json:"createdAt"`
	ParticipantCount int       `json:"participantCount"`
}

type RoomParticipant struct {
	ID       string     `json:"id"`
	RoomID   string     `json:"roomId"`
	UserID   string     `json:"userId"`
	IsActive bool       `json:"isActive"`
	JoinedAt time.Time  `json:"joinedAt"`
	LeftAt   *time.Time `json:"leftAt,omitempty"`
}
