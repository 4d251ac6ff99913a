package generation

import "time"

// Status is the generation lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// CreditSource records which balance paid for a generation. Regenerations
// are free and carry SourceNone.
type CreditSource string

const (
	SourceNone   CreditSource = "none"
	SourcePerson CreditSource = "person"
	SourceTeam   CreditSource = "team"
)

// Generation is one headshot-generation job and its resulting photos.
// Regenerations of the same job share GroupID with the original.
type Generation struct {
	ID           string
	PersonID     string
	TeamID       string
	GroupID      string
	Regeneration bool
	ContextID    string
	Style        string
	Status       Status
	CompositeKey string
	ResultKeys   []string
	Error        string
	CreditSource CreditSource
	Brand        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
}

// StatusCounts tallies generations by lifecycle state.
type StatusCounts struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Stats summarizes a person's dashboard view. Team covers every member's
// generations when the person belongs to a team.
type Stats struct {
	StatusCounts
	Team    StatusCounts
	Selfies int
	Credits int64
}
