package domain

import "time"

// Job outcome status constants
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// DefaultClipLength is applied when a manifest row has a start offset but
// no end offset.
const DefaultClipLength = 10 * time.Second
