package processor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"animrender/internal/pkg/errors"
)

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLocateVideo(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{
			name:  "standard layout",
			files: []string{"videos/animation/480p15/MathAnimation.mp4"},
			want:  "videos/animation/480p15/MathAnimation.mp4",
		},
		{
			name:  "uppercase extension",
			files: []string{"videos/animation/720p30/MathAnimation.MP4"},
			want:  "videos/animation/720p30/MathAnimation.MP4",
		},
		{
			name: "final file wins over partial movie files",
			files: []string{
				"videos/animation/480p15/partial_movie_files/MathAnimation/00000.mp4",
				"videos/animation/480p15/MathAnimation.mp4",
			},
			want: "videos/animation/480p15/MathAnimation.mp4",
		},
		{
			name: "shallowest videos dir wins",
			files: []string{
				"a/b/videos/animation/low/deep.mp4",
				"z/videos/animation/high/shallow.mp4",
			},
			want: "z/videos/animation/high/shallow.mp4",
		},
		{
			name: "lexical order among siblings",
			files: []string{
				"videos/animation/720p30/MathAnimation.mp4",
				"videos/animation/1080p60/MathAnimation.mp4",
			},
			want: "videos/animation/1080p60/MathAnimation.mp4",
		},
		{
			name: "ignores other script stems",
			files: []string{
				"videos/other/480p15/Other.mp4",
				"videos/animation/480p15/MathAnimation.mp4",
			},
			want: "videos/animation/480p15/MathAnimation.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := t.TempDir()
			touch(t, media, tt.files...)

			got, err := LocateVideo(media, "animation")
			if err != nil {
				t.Fatalf("LocateVideo() error = %v", err)
			}
			if want := filepath.Join(media, filepath.FromSlash(tt.want)); got != want {
				t.Errorf("got %s, want %s", got, want)
			}
		})
	}
}

func TestLocateVideoFailures(t *testing.T) {
	tests := []struct {
		name       string
		files      []string
		wantPrefix string
		missing    string
	}{
		{"empty media dir", nil, "No videos directory found in ", missingVideosDir},
		{"only images", []string{"images/animation/frame.png"}, "No videos directory found in ", missingVideosDir},
		{"videos without stem dir", []string{"videos/"}, "No videos directory found in ", missingVideosDir},
		{"videos with other stem", []string{"videos/scene/480p15/Scene.mp4"}, "No videos directory found in ", missingVideosDir},
		{"stem is a file", []string{"videos/animation"}, "No videos directory found in ", missingVideosDir},
		{"stem dir without mp4", []string{"videos/animation/480p15/MathAnimation.mov"}, "No video file found in ", missingVideoFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := t.TempDir()
			touch(t, media, tt.files...)

			_, err := LocateVideo(media, "animation")
			if !errors.IsCode(err, errors.CodeArtifactNotFound) {
				t.Fatalf("expected artifact not found, got %v", err)
			}
			if msg := detail(err); !strings.HasPrefix(msg, tt.wantPrefix) {
				t.Errorf("unexpected diagnostic %q", msg)
			}
			if errors.GetFields(err)["missing"] != tt.missing {
				t.Errorf("unexpected missing field %v", errors.GetFields(err))
			}
		})
	}
}

func TestLocateVideoMissingMediaDir(t *testing.T) {
	_, err := LocateVideo(filepath.Join(t.TempDir(), "media"), "animation")
	if !errors.IsCode(err, errors.CodeArtifactNotFound) {
		t.Errorf("expected artifact not found, got %v", err)
	}
}
