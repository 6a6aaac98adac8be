package processor

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	contracts "animrender/internal/contracts/renderer/v0"
	"animrender/internal/pkg/errors"
)

// Values of the "missing" field on locator errors.
const (
	missingVideosDir = "videos_dir"
	missingVideoFile = "video_file"
)

// LocateVideo finds the rendered video under mediaDir. The renderer nests
// its output as .../videos/<scriptStem>/<resolution>/<scene>.mp4, with a
// layout that varies by version and quality, so the search is:
//
//  1. breadth first, in lexical order, for the shallowest directory that
//     has a "videos" child, which must hold a <scriptStem> directory;
//  2. depth first, in lexical order, under <that>/videos/<scriptStem> for
//     the first regular file with a .mp4 extension (any case).
func LocateVideo(mediaDir, scriptStem string) (string, error) {
	parent, exists := findVideosParent(mediaDir)
	if !exists {
		return "", errors.Newf(errors.CodeArtifactNotFound, "No videos directory found in %s", mediaDir).
			WithField("missing", missingVideosDir)
	}

	candidate := filepath.Join(parent, contracts.VideosDir, scriptStem)
	if info, err := os.Stat(candidate); err != nil || !info.IsDir() {
		return "", errors.Newf(errors.CodeArtifactNotFound, "No videos directory found in %s", mediaDir).
			WithField("missing", missingVideosDir).
			WithField("path", candidate)
	}

	var found string
	err := filepath.WalkDir(candidate, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(d.Name()), contracts.VideoExt) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if found != "" {
		return found, nil
	}
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeArtifactNotFound, "locator.walk",
			"No video file found in "+candidate).
			WithField("missing", missingVideoFile)
	}
	return "", errors.Newf(errors.CodeArtifactNotFound, "No video file found in %s", candidate).
		WithField("missing", missingVideoFile)
}

func findVideosParent(root string) (string, bool) {
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		var subdirs []string
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if e.Name() == contracts.VideosDir {
				return dir, true
			}
			subdirs = append(subdirs, filepath.Join(dir, e.Name()))
		}
		queue = append(queue, subdirs...)
	}
	return "", false
}
