package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runnerr0/watchlog/internal/export"
	"github.com/runnerr0/watchlog/internal/storage"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithStore(a.log, time.Now())
}

// executeWithStore writes the CSV from a provided log (for testing).
func (c *ExportCommand) executeWithStore(log *storage.LogStore, now time.Time) error {
	records, err := log.ReadAll(context.Background())
	if err != nil {
		return fmt.Errorf("read watch log: %w", err)
	}

	if c.Output == "" {
		if err := export.WriteCSV(os.Stdout, records); err != nil {
			return err
		}
		fmt.Println()
		return nil
	}

	dest := c.Output
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, export.FileName(now))
	}
	if err := os.WriteFile(dest, []byte(export.CSV(records)), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"path": dest, "records": len(records)})
	}
	fmt.Printf("Exported %d records to %s\n", len(records), dest)
	return nil
}
