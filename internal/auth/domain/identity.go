package domain

import "time"

// AuthMode records how an identity was created. It is a hint for the
// client UI; both login flows are allowed for every identity.
type AuthMode string

const (
	AuthModePassword    AuthMode = "password"
	AuthModeOneTimeCode AuthMode = "one_time_code"
)

func (m AuthMode) Valid() bool {
	return m == AuthModePassword || m == AuthModeOneTimeCode
}

type Identity struct {
	ID                  string
	DisplayName         *string
	Email               string  // unique, compared case-sensitively
	PasswordHash        *string // PHC argon2id, or legacy bcrypt
	AuthMode            AuthMode
	Active              bool
	LastAuthenticatedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasPassword reports whether a password login can ever succeed.
func (i Identity) HasPassword() bool {
	return i.PasswordHash != nil && *i.PasswordHash != ""
}

// IdentitySummary is the public view of an identity. It never carries
// credential material.
type IdentitySummary struct {
	ID                  string
	DisplayName         *string
	Email               string
	AuthMode            AuthMode
	Active              bool
	LastAuthenticatedAt *time.Time
}

func (i Identity) Summary() IdentitySummary {
	return IdentitySummary{
		ID:                  i.ID,
		DisplayName:         i.DisplayName,
		Email:               i.Email,
		AuthMode:            i.AuthMode,
		Active:              i.Active,
		LastAuthenticatedAt: i.LastAuthenticatedAt,
	}
}
