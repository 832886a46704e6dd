package domain

import "time"

// ImageAsset is a persisted record of an image handed out to a presentation.
// The sourcing core only builds it; storing it is the caller's job.
type ImageAsset struct {
	ID         string         `json:"id"`
	Path       string         `json:"path"`
	IsUploaded bool           `json:"is_uploaded"`
	Extras     map[string]any `json:"extras,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
