package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Profile struct {
	ID        string    `json:"id"`
	FullName  *string   `json:"fullName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

const AnonymousDisplayName = "Someone"

// DisplayName is the name shown next to a user in room views.
func (p *Profile) DisplayName() string {
	if p == nil || p.FullName == nil || *p.FullName == "" {
		return AnonymousDisplayName
	}
	return *p.FullName
}
