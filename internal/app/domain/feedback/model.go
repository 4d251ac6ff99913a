package feedback

import "time"

// Feedback is a product feedback note left by a person.
type Feedback struct {
	ID        string
	PersonID  string
	Rating    int
	Message   string
	CreatedAt time.Time
}
