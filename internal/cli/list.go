package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/watchlog/internal/export"
	"github.com/runnerr0/watchlog/internal/storage"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithStore(a.log, args)
}

// executeWithStore runs the listing against a provided log (for testing).
func (c *ListCommand) executeWithStore(log *storage.LogStore, args []string) error {
	query := c.Query
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}

	records, err := log.ReadAll(context.Background())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	total := len(records)

	rows := export.Filter(export.NewestFirst(records), query)
	if c.Limit > 0 && len(rows) > c.Limit {
		rows = rows[:c.Limit]
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(jsonListOutput{Count: len(rows), Total: total, Query: query, Results: rows})
	}
	return c.printHuman(query, rows, total)
}

type jsonListOutput struct {
	Count   int                   `json:"count"`
	Total   int                   `json:"total"`
	Query   string                `json:"query"`
	Results []storage.WatchRecord `json:"results"`
}

func (c *ListCommand) printHuman(query string, rows []storage.WatchRecord, total int) error {
	if len(rows) == 0 {
		if query != "" {
			fmt.Printf("No watches found for %q\n", query)
		} else {
			fmt.Println("No watches logged yet")
		}
		return nil
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			localTime(r),
			truncate(r.Title, 60),
			truncate(r.ChannelTitle, 30),
			export.FormatDuration(r.DurationSeconds),
			r.Profile,
			r.VideoID,
		})
	}

	fmt.Println(renderTable(
		[]string{"Watched", "Title", "Channel", "Duration", "Profile", "Video"},
		table,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	fmt.Printf("Showing %d of %d\n", len(rows), total)
	return nil
}
