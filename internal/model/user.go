package model

import "time"

// User is a registered account. Accounts come from either email/password
// signup (PasswordHash set) or GitHub OAuth (GitHubID set); a user can have
// both once the identities share an email.
//
// The internal ID is our own (xid) so primary keys are never tied to a
// third-party numbering scheme.
type User struct {
	ID           string    `json:"id"`
	GitHubID     int64     `json:"githubId,omitempty"`
	Login        string    `json:"login"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
