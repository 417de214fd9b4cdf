package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Ingest   *IngestCommand
	Add      *AddCommand
	List     *ListCommand
	Open     *OpenCommand
	Export   *ExportCommand
	Clear    *ClearCommand
	Settings *SettingsCommand
	Status   *StatusCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "watchlog"
	parser.LongDescription = "Local log of the YouTube videos you watch, with metadata from the YouTube Data API."

	cmds := &commands{
		Ingest:   &IngestCommand{globals: &globals, version: version},
		Add:      &AddCommand{globals: &globals, version: version},
		List:     &ListCommand{globals: &globals, version: version},
		Open:     &OpenCommand{globals: &globals, version: version},
		Export:   &ExportCommand{globals: &globals, version: version},
		Clear:    &ClearCommand{globals: &globals, version: version},
		Settings: &SettingsCommand{globals: &globals, version: version},
		Status:   &StatusCommand{globals: &globals, version: version},
	}

	parser.AddCommand("ingest", "Start the watchlog daemon", "Start the local HTTP service that receives navigation events from the browser extension.", cmds.Ingest)
	parser.AddCommand("add", "Log a video URL now", "Run a video URL through extraction, metadata lookup and the log, as if it had just been visited.", cmds.Add)
	parser.AddCommand("list", "List logged watches", "List logged watches newest first, optionally filtered by title or channel.", cmds.List)
	parser.AddCommand("open", "Show records of one video", "Print every logged watch of a single video id.", cmds.Open)
	parser.AddCommand("export", "Export the log as CSV", "Export the whole watch log as CSV.", cmds.Export)
	parser.AddCommand("clear", "Delete the whole watch log", "Delete every logged watch. Destructive operation with safety prompt.", cmds.Clear)
	parser.AddCommand("settings", "Show or change settings", "Show or change the API key, profile label and logging switch.", cmds.Settings)
	parser.AddCommand("status", "Show log statistics", "Show watch log statistics, storage location and configuration summary.", cmds.Status)

	return parser, &globals, cmds
}

// Run is the main entry point for the watchlog CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("watchlog %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
