package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClear_EmptiesLogKeepsSettings(t *testing.T) {
	a := newTestApp(t)
	setAPIKey(t, a, "key-1234")
	seedRecord(t, a, "abc123", "T", "C", time.Hour)

	cmd := &ClearCommand{All: true, Force: true, globals: &GlobalFlags{}}
	var err error
	output := captureOutput(t, func() { err = cmd.executeWithStore(a.log) })
	require.NoError(t, err)
	assert.Contains(t, output, "Cleared the watch log.")

	log, err := a.log.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, log)

	s, err := a.settings.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key-1234", s.APIKey)
}

func TestClear_JSONOutput(t *testing.T) {
	a := newTestApp(t)

	cmd := &ClearCommand{All: true, Force: true, globals: &GlobalFlags{JSON: true}}
	output := captureOutput(t, func() { require.NoError(t, cmd.executeWithStore(a.log)) })

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	assert.Equal(t, true, got["cleared"])
}

func TestConfirm(t *testing.T) {
	captureOutput(t, func() {
		assert.NoError(t, confirm(strings.NewReader("CLEAR\n")))
		assert.ErrorContains(t, confirm(strings.NewReader("yes\n")), "did not match")
		assert.ErrorContains(t, confirm(strings.NewReader("")), "no input")
	})
}
