package device

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeInputTextMapsSpacesAndQuotes(t *testing.T) {
	require.Equal(t, `hello%sworld`, escapeInputText("hello world"))
	require.Equal(t, `say\"hi\"`, escapeInputText(`say"hi"`))
	require.Equal(t, `back\\slash`, escapeInputText(`back\slash`))
}

func TestContainsChineseDetectsHan(t *testing.T) {
	require.True(t, ContainsChinese("你好"))
	require.False(t, ContainsChinese("hello"))
}

func TestArgsPrependsDeviceSelector(t *testing.T) {
	a := New("adb", "emulator-5554")
	require.Equal(t, []string{"-s", "emulator-5554", "shell", "echo"}, a.args("shell", "echo"))

	a2 := New("adb", "")
	require.Equal(t, []string{"shell", "echo"}, a2.args("shell", "echo"))
}

// fakeAdbScript writes a minimal shell script standing in for adb,
// exercising the real os/exec path end to end without a device.
func fakeAdbScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb script requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "adb")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestGetDevicesParsesOutput(t *testing.T) {
	script := fakeAdbScript(t, `echo "List of devices attached"
echo "emulator-5554	device"
echo "unauthorized-device	unauthorized"
`)
	a := New(script, "")
	ids, err := a.GetDevices(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"emulator-5554"}, ids)
}

func TestCurrentIMEParsesSetting(t *testing.T) {
	script := fakeAdbScript(t, `echo "com.google.android.inputmethod.latin/.LatinIME"`)
	a := New(script, "")
	id, err := a.CurrentIME(context.Background())
	require.NoError(t, err)
	require.Equal(t, "com.google.android.inputmethod.latin/.LatinIME", id)
}

func TestCurrentIMETreatsNullAsEmpty(t *testing.T) {
	script := fakeAdbScript(t, `echo "null"`)
	a := New(script, "")
	id, err := a.CurrentIME(context.Background())
	require.NoError(t, err)
	require.Equal(t, "", id)
}

func TestSetIMEAndInputUnicodeTextInvokeAdb(t *testing.T) {
	ok := fakeAdbScript(t, `exit 0`)
	a := New(ok, "")
	require.NoError(t, a.SetIME(context.Background(), AdbKeyboardIME))
	require.NoError(t, a.InputUnicodeText(context.Background(), "你好"))
}

func TestTapInvokesAdbAndFailsOnNonZeroExit(t *testing.T) {
	ok := fakeAdbScript(t, `exit 0`)
	a := New(ok, "")
	require.NoError(t, a.Tap(context.Background(), 10, 20))

	bad := fakeAdbScript(t, `echo "boom" 1>&2; exit 1`)
	a2 := New(bad, "")
	err := a2.Tap(context.Background(), 10, 20)
	require.Error(t, err)
	var de *DeviceError
	require.ErrorAs(t, err, &de)
}
