package selfie

import "time"

// Selfie is an uploaded reference photo used as identity input to headshot
// generation. The bytes live in object storage under ObjectKey.
type Selfie struct {
	ID          string
	PersonID    string
	ObjectKey   string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
