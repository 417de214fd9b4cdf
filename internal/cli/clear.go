package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/watchlog/internal/storage"
)

// Execute implements the go-flags Commander interface for ClearCommand.
func (c *ClearCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("clear requires --all flag for safety")
	}

	if !c.Force {
		if !isTerminal(os.Stdin) {
			return fmt.Errorf("refusing to prompt without a terminal; pass --force to clear non-interactively")
		}
		if err := confirm(os.Stdin); err != nil {
			return err
		}
	}

	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithStore(a.log)
}

func confirm(in io.Reader) error {
	fmt.Println("⚠ WARNING: This will permanently delete every logged watch.")
	fmt.Println("Settings are kept. This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "CLEAR" to confirm: `)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "CLEAR" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWithStore clears a provided log (for testing).
func (c *ClearCommand) executeWithStore(log *storage.LogStore) error {
	ctx := context.Background()
	if err := log.Clear(ctx); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{
			"cleared": true,
			"message": "watch log emptied",
		})
	}

	fmt.Println("Cleared the watch log.")
	return nil
}
