package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "bot.log")

	closer, err := Setup(Options{Level: "debug", File: path, Console: &console})
	require.NoError(t, err)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Str("session", "u1/m1").Msg("Session opened")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "Session opened")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session":"u1/m1"`)
}

func TestSetupBadLevelFallsBackToInfo(t *testing.T) {
	var console bytes.Buffer
	_, err := Setup(Options{Level: "loud", Console: &console})
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}
