package team

import "time"

// Team is a multi-tenant organization account. Seats bounds the number of
// accepted members (the admin included).
type Team struct {
	ID        string
	Name      string
	AdminID   string
	Seats     int
	Brand     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InviteStatus tracks the invite lifecycle.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRevoked  InviteStatus = "revoked"
	InviteExpired  InviteStatus = "expired"
)

// Invite is an emailed offer to join a team, redeemed by token.
type Invite struct {
	ID         string
	TeamID     string
	Email      string
	Token      string
	Status     InviteStatus
	ExpiresAt  time.Time
	AcceptedBy string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BrandContext is a team-owned generation preset: the logo composited onto
// results, the named background color, and the clothing style.
type BrandContext struct {
	ID         string
	TeamID     string
	Name       string
	LogoKey    string
	Background string
	Clothing   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
