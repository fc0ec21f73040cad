package domain

import "time"

// Job represents one manifest row: a single download+transcode task.
type Job struct {
	VideoID  string
	Start    time.Duration
	End      time.Duration
	Trimmed  bool // true when the row carries a start/end range
	DestName string
	Row      int // 1-based manifest line, for error context
}

// Outcome is the recorded result of one Job. Exactly one Outcome is
// produced per dispatched Job, success or not.
type Outcome struct {
	VideoID string
	Status  string
	Detail  string
	Elapsed time.Duration
}

// QueueJob is the JSON payload consumed in queue mode.
type QueueJob struct {
	VideoID string   `json:"id"`
	Start   *float64 `json:"start,omitempty"`
	End     *float64 `json:"end,omitempty"`
	Name    string   `json:"name,omitempty"`
}
