package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Status reports whether one backend prerequisite is usable.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

func (s Status) found(path string) Status {
	s.Command = path
	s.Available = true
	return s
}

func (s Status) missing(detail string) Status {
	s.Available = false
	s.Detail = detail
	return s
}

// CheckInterpreter reports on the Python interpreter the supervisor will
// launch. A bundled interpreter is checked in place; a fallback name is
// looked up on PATH and flagged in Detail.
func CheckInterpreter(interpreter string, fallback bool) Status {
	st := Status{Name: "Python", Command: interpreter, Description: "Runs the download backend"}
	if fallback {
		path, err := exec.LookPath(interpreter)
		if err != nil {
			return st.missing(interpreter + " not found on PATH")
		}
		st = st.found(path)
		st.Detail = "bundled virtualenv missing; using system interpreter"
		return st
	}
	info, err := os.Stat(interpreter)
	if err != nil {
		if path, lookErr := exec.LookPath(interpreter); lookErr == nil {
			return st.found(path)
		}
		return st.missing(interpreter + " not found")
	}
	if !runnable(info) {
		return st.missing(interpreter + " is not executable")
	}
	return st.found(interpreter)
}

// CheckScript reports whether the backend entry script exists.
func CheckScript(script string) Status {
	st := Status{Name: "Backend script", Command: script, Description: "Flask application serving /api/info and /api/download"}
	info, err := os.Stat(script)
	if err != nil {
		return st.missing(script + " not found")
	}
	if info.IsDir() {
		return st.missing(script + " is a directory")
	}
	return st.found(script)
}

// CheckFFmpeg reports the ffmpeg the backend will merge streams with.
// Bundled installs put ffmpeg beside the venv interpreter, which heads the
// backend's PATH, so that copy is preferred over the system one.
func CheckFFmpeg(interpreter string) Status {
	st := Status{Name: "FFmpeg", Command: "ffmpeg", Description: "Used by the backend to merge video and audio", Optional: true}
	if filepath.IsAbs(interpreter) {
		name := "ffmpeg"
		if runtime.GOOS == "windows" {
			name = "ffmpeg.exe"
		}
		sidecar := filepath.Join(filepath.Dir(interpreter), name)
		if info, err := os.Stat(sidecar); err == nil && runnable(info) {
			return st.found(sidecar)
		}
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return st.found(path)
	}
	return st.missing(`binary "ffmpeg" not found`)
}

func runnable(info os.FileInfo) bool {
	if info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode().Perm()&0o111 != 0
}
