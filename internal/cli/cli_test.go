package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureXML = `<?xml version="1.0"?>
<hierarchy>
  <node class="android.widget.Button" resource-id="com.app:id/login" text="Log in" bounds="[100,450][900,520]" clickable="true" enabled="true"/>
</hierarchy>`

func newFakeAdbScript(t *testing.T, devicesOutput string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\n" +
		"case \"$1\" in\n" +
		"  devices) printf '%s' " + shellQuote(devicesOutput) + " ;;\n" +
		"  shell|pull) exit 0 ;;\n" +
		"esac\n"
	path := filepath.Join(dir, "adb")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func shellQuote(s string) string {
	return "'" + s + "'"
}

func TestFetchCmdPrintsKeptElements(t *testing.T) {
	dir := t.TempDir()
	treePath := filepath.Join(dir, "tree.xml")
	require.NoError(t, os.WriteFile(treePath, []byte(fixtureXML), 0o644))

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"fetch", treePath})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "com.app:id/login")
}

func TestDevicesCmdListsSerials(t *testing.T) {
	adbPath := newFakeAdbScript(t, "List of devices attached\nemulator-5554\tdevice\n")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--adb_path", adbPath, "devices"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "emulator-5554")
}

func TestRunCmdRequiresValidInputJSON(t *testing.T) {
	root := NewRootCmd()
	root.SetIn(bytes.NewBufferString("not json"))
	root.SetArgs([]string{"run"})
	err := root.Execute()
	require.Error(t, err)
}

func TestTapCmdRejectsNonNumericArgs(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"tap", "x", "10"})
	err := root.Execute()
	require.Error(t, err)
}
