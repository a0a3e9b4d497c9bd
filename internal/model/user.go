package model

import "time"

// User represents an application user record as stored in the
// `users` table.  PasswordHash never leaves the process: the struct
// has no json tags and handlers only ever serialise PublicUser.
//
// Fields:
//   - ID: UUID primary key.
//   - Email: unique email address, compared exactly as stored.
//   - Name: display name.
//   - PasswordHash: bcrypt hash of the password.
//   - CreatedAt: timestamp of creation.
//   - UpdatedAt: timestamp of last update.
type User struct {
	ID           string    // users.id
	Email        string    // users.email
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// PublicUser is the outward projection of a User.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public drops the password hash.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
