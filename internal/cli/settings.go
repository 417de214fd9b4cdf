package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/watchlog/internal/settings"
)

// Execute implements the go-flags Commander interface for SettingsCommand.
func (c *SettingsCommand) Execute(args []string) error {
	if c.Enable && c.Disable {
		return fmt.Errorf("--enable and --disable are mutually exclusive")
	}

	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithStore(a.settings)
}

func (c *SettingsCommand) changes() bool {
	return c.APIKey != nil || c.Profile != nil || c.Enable || c.Disable
}

// executeWithStore shows or updates settings in a provided store (for testing).
func (c *SettingsCommand) executeWithStore(store *settings.Store) error {
	ctx := context.Background()

	current, err := store.Load(ctx)
	if err != nil {
		return err
	}

	if c.changes() {
		if c.APIKey != nil {
			current.APIKey = *c.APIKey
		}
		if c.Profile != nil {
			current.Profile = *c.Profile
		}
		if c.Enable {
			current.Enabled = true
		}
		if c.Disable {
			current.Enabled = false
		}
		current, err = store.Save(ctx, current)
		if err != nil {
			return err
		}
	}

	masked := current
	masked.APIKey = current.MaskedKey()

	if c.globals != nil && c.globals.JSON {
		return printJSON(masked)
	}

	if c.changes() {
		fmt.Println("Settings saved.")
	}
	apiKey := masked.APIKey
	if apiKey == "" {
		apiKey = "(not set)"
	}
	enabled := "on"
	if !current.Enabled {
		enabled = "off"
	}
	fmt.Printf("API key:   %s\n", apiKey)
	fmt.Printf("Profile:   %s\n", current.Profile)
	fmt.Printf("Logging:   %s\n", enabled)
	return nil
}
