package config

const (
	defaultMode                   = ModeDevelopment
	defaultProjectDir             = "."
	defaultEnvFile                = ".env"
	defaultBackendBaseURL         = "http://127.0.0.1:5000"
	defaultRestartPolicy          = RestartPolicyFixed
	defaultRestartDelayMillis     = 1000
	defaultMaxRestartDelayMillis  = 30000
	defaultStopGraceSeconds       = 5
	defaultRequestTimeoutSeconds  = 60
	defaultDownloadTimeoutSeconds = 0
	defaultProbeURL               = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	defaultWindowUI               = WindowUITerminal
	defaultDevURL                 = "http://localhost:3001"
	defaultStaticFile             = "dist/index.html"
	defaultWindowDelayMillis      = 1000
	defaultContentBind            = "127.0.0.1:0"
	defaultWindowWidth            = 900
	defaultWindowHeight           = 700
	defaultDownloadsDir           = "~/Downloads/ytdesk"
	defaultHistoryPath            = "~/.local/share/ytdesk/history.db"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogDir                 = "~/.local/share/ytdesk/logs"
	defaultLogRetentionDays       = 14
)

// Restart policies accepted by Backend.RestartPolicy.
const (
	RestartPolicyFixed   = "fixed"
	RestartPolicyBackoff = "backoff"
)

// Window front-ends accepted by Window.UI.
const (
	WindowUITerminal = "terminal"
	WindowUIBrowser  = "browser"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		App: App{
			Mode:       defaultMode,
			ProjectDir: defaultProjectDir,
			StateDir:   defaultStateDir(),
			EnvFile:    defaultEnvFile,
		},
		Backend: Backend{
			BaseURL:                defaultBackendBaseURL,
			RestartPolicy:          defaultRestartPolicy,
			RestartDelayMillis:     defaultRestartDelayMillis,
			MaxRestartDelayMillis:  defaultMaxRestartDelayMillis,
			StopGraceSeconds:       defaultStopGraceSeconds,
			RequestTimeoutSeconds:  defaultRequestTimeoutSeconds,
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
			ProbeURL:               defaultProbeURL,
		},
		Window: Window{
			UI:                 defaultWindowUI,
			DevURL:             defaultDevURL,
			StaticFile:         defaultStaticFile,
			StartupDelayMillis: defaultWindowDelayMillis,
			ContentBind:        defaultContentBind,
			Width:              defaultWindowWidth,
			Height:             defaultWindowHeight,
		},
		Downloads: Downloads{
			Dir:            defaultDownloadsDir,
			HistoryEnabled: true,
			HistoryPath:    defaultHistoryPath,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			Dir:           defaultLogDir,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
