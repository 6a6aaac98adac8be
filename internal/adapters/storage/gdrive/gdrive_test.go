package gdrive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"animrender/internal/ports"
)

// fakeDrive answers the handful of Drive v3 calls the client makes.
type fakeDrive struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/upload/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "file-123", "name": "scene.mp4"})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/permissions"):
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "perm-1", "type": "anyone", "role": "reader"})
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/files/"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "file-123",
			"webContentLink": "https://drive.google.com/uc?id=file-123&export=download",
		})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/about"):
		_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"displayName": "render"}})
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, folderID string) (*Client, *fakeDrive) {
	t.Helper()
	fake := &fakeDrive{}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	srv, err := drive.NewService(context.Background(),
		option.WithHTTPClient(ts.Client()),
		option.WithEndpoint(ts.URL+"/drive/v3/"),
	)
	if err != nil {
		t.Fatalf("drive.NewService: %v", err)
	}
	return NewClient(srv, folderID), fake
}

func TestPutObject(t *testing.T) {
	c, _ := newTestClient(t, "folder-1")

	out, err := c.PutObject(context.Background(), ports.PutObjectInput{
		ObjectKey:   "videos/scene/math_animation.mp4",
		ContentType: "video/mp4",
		Reader:      strings.NewReader("fake"),
		Size:        4,
	})
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if out.ObjectKey != "file-123" {
		t.Errorf("expected drive file id, got %q", out.ObjectKey)
	}
}

func TestPutObjectRequiresKey(t *testing.T) {
	c, _ := newTestClient(t, "")
	if _, err := c.PutObject(context.Background(), ports.PutObjectInput{Reader: strings.NewReader("x")}); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestGetSignedURLSharesFile(t *testing.T) {
	c, fake := newTestClient(t, "")

	out, err := c.GetSignedURL(context.Background(), "file-123", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("GetSignedURL() error = %v", err)
	}
	if !strings.Contains(out.URL, "file-123") {
		t.Errorf("unexpected url %q", out.URL)
	}
	if len(fake.calls) != 2 || !strings.HasSuffix(fake.calls[0], "/permissions") {
		t.Errorf("expected permission grant before lookup, got %v", fake.calls)
	}
}

func TestCheck(t *testing.T) {
	c, _ := newTestClient(t, "")
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("Check() error = %v", err)
	}
}
