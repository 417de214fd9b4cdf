package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/watchlog/internal/pipeline"
	"github.com/runnerr0/watchlog/internal/videoid"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for add command")
	}
	if _, err := videoid.Parse(c.URL); err != nil {
		return fmt.Errorf("invalid video URL %q: %w", c.URL, err)
	}

	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithOrchestrator(a.orchestrator())
}

// executeWithOrchestrator runs the add logic against a provided pipeline (used by tests).
func (c *AddCommand) executeWithOrchestrator(orch *pipeline.Orchestrator) error {
	outcome := orch.Handle(context.Background(), pipeline.NavigationEvent{URL: c.URL, TabID: c.TabID})

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]string{
			"url":     c.URL,
			"outcome": string(outcome),
		})
	}

	switch outcome {
	case pipeline.OutcomeLogged:
		fmt.Printf("Logged %s\n", c.URL)
		return nil
	case pipeline.OutcomeDuplicate:
		fmt.Printf("Skipped %s: already logged in the last few minutes\n", c.URL)
		return nil
	case pipeline.OutcomeDisabled:
		fmt.Println("Logging is disabled; enable it with `watchlog settings --enable`")
		return nil
	case pipeline.OutcomeMissingAPIKey:
		return &pipeline.ConfigError{Err: pipeline.ErrMissingAPIKey}
	case pipeline.OutcomeFetchFailed, pipeline.OutcomeStoreFailed, pipeline.OutcomeSettingsError:
		return fmt.Errorf("could not log %s: %s (see the log for details)", c.URL, outcome)
	default:
		fmt.Printf("Not logged: %s\n", outcome)
		return nil
	}
}
