package host

import (
	"path/filepath"

	"ytdesk/internal/config"
)

// ContentSource identifies what a window loads: a development server URL or a
// bundled static entry file.
type ContentSource struct {
	URL  string
	File string
}

// ResolveContent picks the content source for the configured run mode.
func ResolveContent(cfg *config.Config) ContentSource {
	if cfg == nil {
		return ContentSource{}
	}
	if !cfg.Packaged() {
		return ContentSource{URL: cfg.Window.DevURL}
	}
	file := cfg.Window.StaticFile
	if !filepath.IsAbs(file) {
		file = filepath.Join(cfg.ResourceRoot(), file)
	}
	return ContentSource{File: file}
}

// Static reports whether the source is a file on disk.
func (s ContentSource) Static() bool {
	return s.File != ""
}

// String returns the location a user would recognize.
func (s ContentSource) String() string {
	if s.Static() {
		return "file://" + filepath.ToSlash(s.File)
	}
	return s.URL
}
