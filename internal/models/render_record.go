package models

import "time"

// RenderRecord is one row of render_history: the final outcome of a job.
type RenderRecord struct {
	JobID      string     `json:"job_id"`
	Status     string     `json:"status"`
	Quality    string     `json:"quality"`
	AudioURL   string     `json:"audio_url,omitempty"`
	URL        string     `json:"url,omitempty"`
	Error      string     `json:"error,omitempty"`
	Message    string     `json:"message,omitempty"`
	Provider   string     `json:"provider"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMS int64      `json:"duration_ms"`
}
