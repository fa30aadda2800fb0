package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newTestApp() *cli.App {
	return &cli.App{
		Name: "libris",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info"},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{Name: "noop", Action: func(*cli.Context) error { return nil }},
		},
	}
}

func TestSetupLogger(t *testing.T) {
	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			err := newTestApp().Run([]string{"libris", "--log-level", level, "noop"})
			require.NoError(t, err, "level %q should be accepted", level)
		}
	})

	t.Run("rejects unknown levels", func(t *testing.T) {
		err := newTestApp().Run([]string{"libris", "--log-level", "verbose", "noop"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
