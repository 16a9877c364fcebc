package domain

import "time"

// User is the credential record backing password login. Roles are carried on
// the record and snapshotted into access tokens at issuance time.
type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2id encoded
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds the given role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
