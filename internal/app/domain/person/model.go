package person

import "time"

// Role distinguishes team administrators from ordinary members.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Person is a registered user of the platform. A person optionally belongs
// to one team; admins are the persons that manage it.
type Person struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string `json:"-"`
	Role         Role
	TeamID       string
	Brand        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
