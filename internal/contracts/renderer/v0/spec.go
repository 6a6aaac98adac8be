package v0

import "animrender/internal/jobs"

// Renderer CLI contract v0: the scene script is written as ScriptFile in the
// job workspace and rendered with
//
//	manim <quality flag> animation.py MathAnimation
//
// The renderer writes its output under MediaDir, in a tree that contains a
// VideosDir directory holding one folder per script stem.
const (
	ScriptFile = "animation.py"
	ScriptStem = "animation"
	SceneName  = "MathAnimation"
	MediaDir   = "media"
	VideosDir  = "videos"
	VideoExt   = ".mp4"

	AudioFile    = "audio.mp3"
	CombinedFile = "combined.mp4"
)

// Quality flags understood by the renderer.
const (
	FlagLow    = "-ql"
	FlagMedium = "-qm"
	FlagHigh   = "-qh"
)

// QualityFlag maps a requested quality to its renderer flag. Unknown values
// fall back to the fast preview flag.
func QualityFlag(quality jobs.Quality) string {
	switch quality {
	case jobs.QualityMedium:
		return FlagMedium
	case jobs.QualityHigh:
		return FlagHigh
	case jobs.QualityLow:
		return FlagLow
	default:
		return FlagLow
	}
}
