// Package jobs holds the in-memory render job registry and its state machine.
package jobs

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"animrender/internal/pkg/errors"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Quality is the requested render quality. Values outside the known set are
// kept as given and rendered at the lowest setting.
type Quality string

const (
	QualityLow     Quality = "low_quality"
	QualityMedium  Quality = "medium_quality"
	QualityHigh    Quality = "high_quality"
	DefaultQuality         = QualityMedium
)

// Job is the registry record for one render request.
type Job struct {
	ID         string     `json:"code_id"`
	Status     Status     `json:"status"`
	Message    string     `json:"message,omitempty"`
	URL        string     `json:"url,omitempty"`
	Error      string     `json:"error,omitempty"`
	Quality    Quality    `json:"quality"`
	AudioURL   string     `json:"audio_url,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration is the processing time of a finished job, zero otherwise.
func (j Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// ids end up as file names and object key segments.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID checks a caller supplied job id.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return errors.ValidationField("code_id",
			"code_id must start with a letter or digit and contain only letters, digits, '.', '_' or '-' (max 128)")
	}
	return nil
}

// NewID returns a fresh job id.
func NewID() string {
	return uuid.NewString()
}
