package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:       "~/.config/watchlog",
			Backend:    BackendSQLite,
			SQLiteFile: "watchlog.db",
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8722,
			AuthToken:      "",
			MaxRequestSize: 65536,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "watchlog.log",
		},
		YouTube: YouTubeConfig{
			Endpoint:       "https://youtube.googleapis.com/",
			TimeoutSeconds: 15,
		},
		Pipeline: PipelineConfig{
			DebounceWindowSeconds: 10,
			DedupWindowSeconds:    300,
		},
	}
}
