package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"animrender/internal/jobs"
	"animrender/internal/models"
	"animrender/internal/pkg/logger"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

const schema = `
CREATE TABLE IF NOT EXISTS render_history (
	id          BIGSERIAL PRIMARY KEY,
	job_id      TEXT        NOT NULL,
	status      TEXT        NOT NULL,
	quality     TEXT        NOT NULL,
	audio_url   TEXT,
	url         TEXT,
	error_text  TEXT,
	message     TEXT,
	provider    TEXT        NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	started_at  TIMESTAMPTZ,
	finished_at TIMESTAMPTZ,
	duration_ms BIGINT      NOT NULL DEFAULT 0,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS render_history_job_id_idx ON render_history (job_id);
`

// RenderHistoryRepository appends finished jobs to render_history. Rows are
// for audit and analytics; the service never reads them back.
type RenderHistoryRepository struct {
	db DB
}

func NewRenderHistoryRepository(db DB) *RenderHistoryRepository {
	return &RenderHistoryRepository{db: db}
}

func (r *RenderHistoryRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

func (r *RenderHistoryRepository) Insert(ctx context.Context, rec *models.RenderRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO render_history
			(job_id, status, quality, audio_url, url, error_text, message, provider,
			 created_at, started_at, finished_at, duration_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		rec.JobID,
		rec.Status,
		rec.Quality,
		nullIfEmpty(rec.AudioURL),
		nullIfEmpty(rec.URL),
		nullIfEmpty(rec.Error),
		nullIfEmpty(rec.Message),
		rec.Provider,
		rec.CreatedAt,
		rec.StartedAt,
		rec.FinishedAt,
		rec.DurationMS,
	)
	return err
}

func (r *RenderHistoryRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Recorder returns a jobs.Listener that inserts a row whenever a job
// reaches a terminal state.
func (r *RenderHistoryRepository) Recorder(provider string, log *logger.Logger) jobs.Listener {
	log = log.WithComponent("render_history")
	return jobs.ListenerFunc(func(ctx context.Context, job jobs.Job) {
		if !job.Status.Terminal() {
			return
		}
		rec := &models.RenderRecord{
			JobID:      job.ID,
			Status:     string(job.Status),
			Quality:    string(job.Quality),
			AudioURL:   job.AudioURL,
			URL:        job.URL,
			Error:      job.Error,
			Message:    job.Message,
			Provider:   provider,
			CreatedAt:  job.CreatedAt,
			StartedAt:  job.StartedAt,
			FinishedAt: job.FinishedAt,
			DurationMS: job.Duration().Milliseconds(),
		}
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.Insert(ictx, rec); err != nil {
			log.FromContext(ctx).Error("failed to record render history",
				"job_id", job.ID,
				"error", err.Error(),
			)
		}
	})
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
