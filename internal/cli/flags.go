package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DataDir string `long:"data-dir" description:"Override the storage directory"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// IngestCommand runs the daemon that receives navigation events.
type IngestCommand struct {
	Host     string `long:"host" description:"Override daemon listen host"`
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// AddCommand runs one URL through the pipeline as if it were visited.
type AddCommand struct {
	URL   string `long:"url" description:"Video URL to log (required)"`
	TabID int    `long:"tab" description:"Tab id to debounce against" default:"0"`

	globals *GlobalFlags
	version string
}

// ListCommand shows the watch log newest first.
type ListCommand struct {
	Query string `long:"query" short:"q" description:"Only records whose title or channel contains this text"`
	Limit int    `long:"limit" description:"Maximum rows (0 for all)" default:"20"`

	globals *GlobalFlags
	version string
}

// OpenCommand prints every record of one video.
type OpenCommand struct {
	ID     string `long:"id" description:"Video id (required)"`
	Format string `long:"format" description:"Output format: full | url | json" default:"full"`

	globals *GlobalFlags
	version string
}

// ExportCommand writes the watch log as CSV.
type ExportCommand struct {
	Output string `long:"output" short:"o" description:"Destination file, or a directory for the default name; stdout when empty"`

	globals *GlobalFlags
	version string
}

// ClearCommand deletes the whole watch log after confirmation.
type ClearCommand struct {
	All   bool `long:"all" description:"Required flag to confirm clear intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}

// SettingsCommand shows or changes the stored settings.
type SettingsCommand struct {
	APIKey  *string `long:"api-key" description:"YouTube Data API key"`
	Profile *string `long:"profile" description:"Profile label stamped on new records"`
	Enable  bool    `long:"enable" description:"Turn logging on"`
	Disable bool    `long:"disable" description:"Turn logging off"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows log statistics and a configuration summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}
