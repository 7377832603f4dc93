package tracelog

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupValidLevel(t *testing.T) {
	var buf bytes.Buffer
	err := Setup("debug", false, &buf)
	require.NoError(t, err)
	log.Info().Str("k", "v").Msg("hello")
	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), `"k":"v"`)
}

func TestSetupInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	err := Setup("not-a-level", false, &buf)
	require.Error(t, err)
}

func TestSetupPrettyWriter(t *testing.T) {
	var buf bytes.Buffer
	err := Setup("info", true, &buf)
	require.NoError(t, err)
	log.Info().Msg("pretty line")
	require.Contains(t, buf.String(), "pretty line")
}

func TestSetupNilWriterDefaultsToStderr(t *testing.T) {
	err := Setup("warn", false, nil)
	require.NoError(t, err)
}
