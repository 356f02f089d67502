package backend

import (
	"regexp"
	"strings"
)

const (
	defaultVideoFilename = "video.mp4"
	defaultAudioFilename = "audio.mp3"
)

var dispositionFilename = regexp.MustCompile(`filename="(.+?)"`)

// FilenameFromDisposition extracts the quoted filename from a
// Content-Disposition header value. Without one it falls back to video.mp4,
// or audio.mp3 for audio-only downloads.
func FilenameFromDisposition(header string, audioOnly bool) string {
	if match := dispositionFilename.FindStringSubmatch(header); len(match) == 2 {
		if name := strings.TrimSpace(match[1]); name != "" {
			return name
		}
	}
	if audioOnly {
		return defaultAudioFilename
	}
	return defaultVideoFilename
}
