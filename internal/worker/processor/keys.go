package processor

import (
	"fmt"
	"unicode/utf8"
)

// ObjectKey is the storage key of a job's final video for the given provider.
// Local files are served flat from the output directory.
func ObjectKey(provider, jobID string) string {
	if provider == "localfs" {
		return jobID + ".mp4"
	}
	return fmt.Sprintf("videos/%s/math_animation.mp4", jobID)
}

// Truncate caps s at n bytes, keeping the tail where tools report the cause.
// The cut never splits a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return "..." + s[start:]
}
