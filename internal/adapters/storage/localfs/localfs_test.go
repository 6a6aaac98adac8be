package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"animrender/internal/ports"
)

func TestPutObject(t *testing.T) {
	root := t.TempDir()
	fs := New(root, "/output")

	out, err := fs.PutObject(context.Background(), ports.PutObjectInput{
		ObjectKey:   "scene-1.mp4",
		ContentType: "video/mp4",
		Reader:      strings.NewReader("fake video"),
	})
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if out.ObjectKey != "scene-1.mp4" || out.Size != int64(len("fake video")) {
		t.Errorf("unexpected output %+v", out)
	}

	data, err := os.ReadFile(filepath.Join(root, "scene-1.mp4"))
	if err != nil || string(data) != "fake video" {
		t.Errorf("unexpected file content %q, err %v", data, err)
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestPutObjectOverwrites(t *testing.T) {
	fs := New(t.TempDir(), "/output")
	ctx := context.Background()

	for _, body := range []string{"first", "second"} {
		if _, err := fs.PutObject(ctx, ports.PutObjectInput{ObjectKey: "a.mp4", Reader: strings.NewReader(body)}); err != nil {
			t.Fatal(err)
		}
	}
	data, _ := os.ReadFile(filepath.Join(fs.Root(), "a.mp4"))
	if string(data) != "second" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	fs := New(t.TempDir(), "/output")

	for _, key := range []string{"", "../x.mp4", "a/../../x.mp4", "/abs.mp4", "a//b.mp4"} {
		_, err := fs.PutObject(context.Background(), ports.PutObjectInput{ObjectKey: key, Reader: strings.NewReader("x")})
		if err == nil {
			t.Errorf("key %q: expected error", key)
		}
	}
}

func TestGetSignedURL(t *testing.T) {
	fs := New(t.TempDir(), "output/")

	out, err := fs.GetSignedURL(context.Background(), "scene-1.mp4", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if out.URL != "/output/scene-1.mp4" {
		t.Errorf("unexpected url %q", out.URL)
	}
}

func TestCheck(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "output")
	fs := New(root, "/output")

	if err := fs.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("expected check file to be removed, got %d entries", len(entries))
	}
}
