package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoConfigOrFlags(t *testing.T) {
	s, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "adb", s.AdbPath)
	require.InDelta(t, 0.6, s.ImageThreshold, 0.0001)
	require.Equal(t, 30, s.MaxRounds)
}

func TestLoadMissingConfigFileIsNotAnError(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"), nil)
	require.NoError(t, err)
	require.Equal(t, "adb", s.AdbPath)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("adb_path: /opt/android/adb\nmax_rounds: 10\n"), 0o644))
	s, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, "/opt/android/adb", s.AdbPath)
	require.Equal(t, 10, s.MaxRounds)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("adb_path", "", "")
	require.NoError(t, flags.Set("adb_path", "/custom/adb"))
	s, err := Load("", flags)
	require.NoError(t, err)
	require.Equal(t, "/custom/adb", s.AdbPath)
}

func TestRequireEnvMissing(t *testing.T) {
	_, err := RequireEnv("TKE_DEFINITELY_UNSET_VAR")
	require.Error(t, err)
}

func TestRequireEnvPresent(t *testing.T) {
	require.NoError(t, os.Setenv("TKE_TEST_VAR", "value"))
	defer os.Unsetenv("TKE_TEST_VAR")
	v, err := RequireEnv("TKE_TEST_VAR")
	require.NoError(t, err)
	require.Equal(t, "value", v)
}
