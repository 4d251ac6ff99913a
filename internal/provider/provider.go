// Package provider talks to the external AI image service that performs
// background removal and headshot synthesis.
package provider

import (
	"context"
	"fmt"
	"time"
)

// TransientError marks a provider failure worth retrying, with an optional
// server-suggested delay.
type TransientError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("provider temporarily unavailable: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// GenerateRequest describes one synthesis call. Composite carries the selfie
// grid the model conditions on.
type GenerateRequest struct {
	Composite  []byte
	Style      string
	Background string
	Clothing   string
	Count      int
}

// ImageGenerator is the contract the generation pipeline depends on.
type ImageGenerator interface {
	// RemoveBackground strips the background from a photo, returning PNG
	// bytes with transparency.
	RemoveBackground(ctx context.Context, image []byte) ([]byte, error)
	// GenerateHeadshots synthesizes req.Count headshot variations and
	// returns their JPEG bytes.
	GenerateHeadshots(ctx context.Context, req GenerateRequest) ([][]byte, error)
}
