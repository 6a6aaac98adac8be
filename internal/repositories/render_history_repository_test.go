package repositories

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"animrender/internal/jobs"
	"animrender/internal/models"
	"animrender/internal/pkg/logger"
)

type fakeDB struct {
	sql  []string
	args [][]any
	err  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) Ping(context.Context) error { return f.err }

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := NewRenderHistoryRepository(db).EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(db.sql[0], "CREATE TABLE IF NOT EXISTS render_history") {
		t.Errorf("unexpected schema sql %q", db.sql[0])
	}
}

func TestInsert(t *testing.T) {
	db := &fakeDB{}
	repo := NewRenderHistoryRepository(db)

	err := repo.Insert(context.Background(), &models.RenderRecord{
		JobID:     "scene-1",
		Status:    "failed",
		Quality:   "low_quality",
		Error:     "SyntaxError",
		Provider:  "localfs",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	args := db.args[0]
	if len(args) != 12 {
		t.Fatalf("expected 12 args, got %d", len(args))
	}
	if args[0] != "scene-1" || args[5] != "SyntaxError" {
		t.Errorf("unexpected args %v", args)
	}
	if args[3] != nil || args[4] != nil {
		t.Errorf("expected empty audio_url and url to be NULL, got %v %v", args[3], args[4])
	}
}

func TestRecorderOnlyTerminal(t *testing.T) {
	db := &fakeDB{}
	rec := NewRenderHistoryRepository(db).Recorder("s3", logger.Discard())
	r := jobs.NewRegistry(rec)
	ctx := context.Background()

	if _, err := r.Create(ctx, jobs.Job{ID: "hist"}); err != nil {
		t.Fatal(err)
	}
	_ = r.MarkProcessing(ctx, "hist", "Starting Manim rendering")
	_ = r.SetMessage(ctx, "hist", "Uploading to S3")
	if len(db.sql) != 0 {
		t.Fatalf("expected no rows before terminal state, got %d", len(db.sql))
	}

	_ = r.Complete(ctx, "hist", "https://x/y.mp4", "Video rendered and uploaded successfully")
	if len(db.sql) != 1 {
		t.Fatalf("expected one row, got %d", len(db.sql))
	}
	if db.args[0][1] != "completed" || db.args[0][7] != "s3" {
		t.Errorf("unexpected args %v", db.args[0])
	}
}

func TestRecorderSwallowsErrors(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	rec := NewRenderHistoryRepository(db).Recorder("localfs", logger.Discard())

	rec.JobChanged(context.Background(), jobs.Job{ID: "x", Status: jobs.StatusFailed})
	if len(db.sql) != 1 {
		t.Errorf("expected insert attempt, got %d", len(db.sql))
	}
}
