package processor

import (
	"fmt"
	"os"
	"path/filepath"

	contracts "animrender/internal/contracts/renderer/v0"
)

// Workspace is the scratch directory owned by one executor run.
type Workspace struct {
	Dir string
}

// NewWorkspace creates a fresh directory under root (os.TempDir() when empty).
func NewWorkspace(root, jobID string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create workspace root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "render-"+jobID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// WriteScript stores the scene source as the renderer entry script.
func (w *Workspace) WriteScript(source string) error {
	return os.WriteFile(w.ScriptPath(), []byte(source), 0o644)
}

func (w *Workspace) ScriptPath() string   { return filepath.Join(w.Dir, contracts.ScriptFile) }
func (w *Workspace) MediaDir() string     { return filepath.Join(w.Dir, contracts.MediaDir) }
func (w *Workspace) AudioPath() string    { return filepath.Join(w.Dir, contracts.AudioFile) }
func (w *Workspace) CombinedPath() string { return filepath.Join(w.Dir, contracts.CombinedFile) }

// Cleanup removes the workspace and everything in it.
func (w *Workspace) Cleanup() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	return os.RemoveAll(w.Dir)
}
