// Package models holds the persistent records of the catalog server.
package models

import "time"

// Role is the coarse authorization tag carried by a user and their tokens.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a stored credential record. PasswordHash is an argon2id PHC string.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
	Email        string
	Role         Role
	CreatedAt    time.Time
}
