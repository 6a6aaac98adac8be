package processor

import (
	"context"
	"strings"

	"animrender/internal/pkg/errors"
	"animrender/internal/worker/command"
)

// AudioMerger downloads a remote audio track and muxes it over the video.
// Every failure is returned as CodeAudioMerge so the caller can fall back to
// the silent video.
type AudioMerger struct {
	runner    command.Runner
	curlBin   string
	ffmpegBin string
}

func NewAudioMerger(runner command.Runner, curlBin, ffmpegBin string) *AudioMerger {
	if curlBin == "" {
		curlBin = "curl"
	}
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &AudioMerger{runner: runner, curlBin: curlBin, ffmpegBin: ffmpegBin}
}

// Merge returns the path of the combined file inside ws.
func (m *AudioMerger) Merge(ctx context.Context, ws *Workspace, videoPath, audioURL string) (string, error) {
	audioPath := ws.AudioPath()
	fetch := command.Spec{
		Name: m.curlBin,
		Args: []string{"-fsSL", "-o", audioPath, audioURL},
		Dir:  ws.Dir,
	}
	if res, err := m.runner.Run(ctx, fetch); err != nil {
		return "", errors.WrapWithCode(err, errors.CodeAudioMerge, "audio.fetch", failureDetail(fetch, res, err))
	}

	out := ws.CombinedPath()
	mux := command.Spec{
		Name: m.ffmpegBin,
		Args: []string{
			"-y",
			"-i", videoPath,
			"-i", audioPath,
			"-c:v", "copy",
			"-c:a", "aac",
			"-shortest",
			out,
		},
		Dir: ws.Dir,
	}
	if res, err := m.runner.Run(ctx, mux); err != nil {
		return "", errors.WrapWithCode(err, errors.CodeAudioMerge, "audio.mux", failureDetail(mux, res, err))
	}
	return out, nil
}

func failureDetail(spec command.Spec, res command.Result, err error) string {
	detail := strings.TrimSpace(command.Diagnostic(res, err))
	// ffmpeg prints its banner first; the cause is at the end.
	if lines := strings.Split(detail, "\n"); len(lines) > 5 {
		detail = strings.Join(lines[len(lines)-5:], "\n")
	}
	if strings.HasPrefix(detail, spec.Name+":") {
		return detail
	}
	return spec.Name + ": " + detail
}
