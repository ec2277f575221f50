package main

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want command
	}{
		{"up", []string{"-up"}, command{action: "up"}},
		{"down", []string{"-down"}, command{action: "down"}},
		{"steps back", []string{"-steps", "-2"}, command{action: "steps", steps: -2}},
		{"status from directory", []string{"-status", "-path", "./migrations"}, command{action: "status", dir: "./migrations"}},
		{"force zero", []string{"-force", "0"}, command{action: "force"}},
		{"force version", []string{"-force", "3"}, command{action: "force", version: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.args, io.Discard)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	t.Run("no action", func(t *testing.T) {
		_, err := parseCommand(nil, io.Discard)
		assert.True(t, errors.Is(err, errNoAction))
	})

	t.Run("path alone is not an action", func(t *testing.T) {
		_, err := parseCommand([]string{"-path", "./migrations"}, io.Discard)
		assert.True(t, errors.Is(err, errNoAction))
	})

	t.Run("two actions", func(t *testing.T) {
		_, err := parseCommand([]string{"-up", "-status"}, io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only one action")
	})

	t.Run("help", func(t *testing.T) {
		_, err := parseCommand([]string{"-h"}, io.Discard)
		assert.True(t, errors.Is(err, flag.ErrHelp))
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := parseCommand([]string{"-sideways"}, io.Discard)
		assert.Error(t, err)
	})
}
