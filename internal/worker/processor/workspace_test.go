package processor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkspaceLifecycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")

	ws, err := NewWorkspace(root, "job-1")
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(ws.Dir), "render-job-1-") {
		t.Errorf("unexpected dir name %s", ws.Dir)
	}

	if err := ws.WriteScript("from manim import *"); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(ws.ScriptPath()); string(b) != "from manim import *" {
		t.Errorf("unexpected script %q", b)
	}
	if filepath.Base(ws.MediaDir()) != "media" || filepath.Base(ws.AudioPath()) != "audio.mp3" {
		t.Error("unexpected workspace layout")
	}

	if err := ws.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Errorf("expected workspace removed, stat err = %v", err)
	}
}

func TestWorkspacesAreDistinct(t *testing.T) {
	root := t.TempDir()
	a, _ := NewWorkspace(root, "same")
	b, _ := NewWorkspace(root, "same")
	if a.Dir == b.Dir {
		t.Error("expected distinct directories for the same job id")
	}
}

func TestNilWorkspaceCleanup(t *testing.T) {
	var ws *Workspace
	if err := ws.Cleanup(); err != nil {
		t.Errorf("nil cleanup error = %v", err)
	}
}
