package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/watchlog/internal/export"
	"github.com/runnerr0/watchlog/internal/storage"
)

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for open command")
	}

	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithStore(a.log)
}

// executeWithStore prints the records of one video from a provided log (for testing).
func (c *OpenCommand) executeWithStore(log *storage.LogStore) error {
	records, err := log.ReadAll(context.Background())
	if err != nil {
		return fmt.Errorf("read watch log: %w", err)
	}

	var matches []storage.WatchRecord
	for _, r := range export.NewestFirst(records) {
		if r.VideoID == c.ID {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return fmt.Errorf("video not found in log: %s", c.ID)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(matches)
	}

	switch c.Format {
	case "url":
		fmt.Println(matches[0].URL)
	case "json":
		return printJSON(matches)
	default: // "full"
		c.outputFull(matches)
	}
	return nil
}

func (c *OpenCommand) outputFull(matches []storage.WatchRecord) {
	latest := matches[0]
	fmt.Println(latest.VideoID)
	fmt.Printf("Title:     %s\n", latest.Title)
	fmt.Printf("Channel:   %s\n", latest.ChannelTitle)
	fmt.Printf("Duration:  %s\n", export.FormatDuration(latest.DurationSeconds))
	fmt.Printf("URL:       %s\n", latest.URL)
	fmt.Println()
	fmt.Printf("Watched %d time(s):\n", len(matches))
	for _, r := range matches {
		fmt.Printf("  %s  %s\n", localTime(r), r.Profile)
	}
	fmt.Println()
	fmt.Println("--- Description ---")
	if latest.Description == "" {
		fmt.Println("No description")
	} else {
		fmt.Println(latest.Description)
	}
}
