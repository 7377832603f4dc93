// Package device is the Device Adapter (C1): a thin surface over ADB
// primitives, shelled out exactly the way the original controller
// does — one os/exec call per operation, no ADB client library.
package device

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

// Adapter drives one device via the adb binary.
type Adapter struct {
	AdbPath  string
	DeviceID string
}

func New(adbPath, deviceID string) *Adapter {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &Adapter{AdbPath: adbPath, DeviceID: deviceID}
}

// DeviceError wraps a failed adb invocation with the command that failed.
type DeviceError struct {
	Command []string
	Err     error
	Stderr  string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device: %s failed: %v (%s)", strings.Join(e.Command, " "), e.Err, e.Stderr)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func (a *Adapter) args(rest ...string) []string {
	var out []string
	if a.DeviceID != "" {
		out = append(out, "-s", a.DeviceID)
	}
	out = append(out, rest...)
	return out
}

func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	full := a.args(args...)
	cmd := exec.CommandContext(ctx, a.AdbPath, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Debug().Strs("args", full).Msg("device: running adb command")
	if err := cmd.Run(); err != nil {
		return "", &DeviceError{Command: append([]string{a.AdbPath}, full...), Err: err, Stderr: stderr.String()}
	}
	return stdout.String(), nil
}

func (a *Adapter) shell(ctx context.Context, args ...string) (string, error) {
	return a.run(ctx, append([]string{"shell"}, args...)...)
}

// Tap sends `input tap x y`.
func (a *Adapter) Tap(ctx context.Context, x, y int) error {
	_, err := a.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// Swipe sends `input swipe x1 y1 x2 y2 duration`.
func (a *Adapter) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	_, err := a.shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2), strconv.Itoa(durationMs))
	return err
}

// Press is a swipe with identical start/end points — the device's
// long-press idiom.
func (a *Adapter) Press(ctx context.Context, x, y, durationMs int) error {
	return a.Swipe(ctx, x, y, x, y, durationMs)
}

// InputText escapes quotes/backslashes and maps spaces to %s, as the
// shell `input text` command requires.
func (a *Adapter) InputText(ctx context.Context, s string) error {
	escaped := escapeInputText(s)
	_, err := a.shell(ctx, "input", "text", escaped)
	return err
}

func escapeInputText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, " ", "%s")
	return s
}

// ContainsChinese reports whether s has any CJK Unified Ideograph,
// used by the interpreter to pick an input-method engine.
func ContainsChinese(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// AdbKeyboardIME is the ADBKeyboard app's input method id, the
// community IME that exposes a broadcast intent for injecting
// Unicode text — the standard workaround for `input text`'s
// inability to represent CJK.
const AdbKeyboardIME = "com.android.adbkeyboard/.AdbIME"

// CurrentIME reads the active input method id from the
// default_input_method secure setting.
func (a *Adapter) CurrentIME(ctx context.Context) (string, error) {
	out, err := a.shell(ctx, "settings", "get", "secure", "default_input_method")
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(out)
	if id == "null" {
		return "", nil
	}
	return id, nil
}

// SetIME switches the active input method via `ime set`.
func (a *Adapter) SetIME(ctx context.Context, imeID string) error {
	_, err := a.shell(ctx, "ime", "set", imeID)
	return err
}

// InputUnicodeText sends s to AdbKeyboardIME's ADB_INPUT_TEXT
// broadcast receiver, the only shell-reachable path that can inject
// CJK and other non-ASCII text. The caller must have already
// switched to AdbKeyboardIME via SetIME.
func (a *Adapter) InputUnicodeText(ctx context.Context, s string) error {
	_, err := a.shell(ctx, "am", "broadcast", "-a", "ADB_INPUT_TEXT", "--es", "msg", quoteBroadcastArg(s))
	return err
}

// quoteBroadcastArg single-quotes s for the remote shell that adbd
// reassembles the shell command in, escaping embedded quotes.
func quoteBroadcastArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// KeyEvent sends `input keyevent code`.
func (a *Adapter) KeyEvent(ctx context.Context, code string) error {
	_, err := a.shell(ctx, "input", "keyevent", code)
	return err
}

// ClearInput moves the cursor to the end of the field and deletes
// backward 50 times — enough to exhaust typical field contents.
func (a *Adapter) ClearInput(ctx context.Context) error {
	if err := a.KeyEvent(ctx, "KEYCODE_MOVE_END"); err != nil {
		return err
	}
	for i := 0; i < 50; i++ {
		if err := a.KeyEvent(ctx, "KEYCODE_DEL"); err != nil {
			return err
		}
	}
	return nil
}

// Back sends the back key.
func (a *Adapter) Back(ctx context.Context) error { return a.KeyEvent(ctx, "KEYCODE_BACK") }

// Home sends the home key.
func (a *Adapter) Home(ctx context.Context) error { return a.KeyEvent(ctx, "KEYCODE_HOME") }

// HideKeyboard dismisses the IME via the back key, the same primitive
// as Back — there is no dedicated hide-keyboard key event.
func (a *Adapter) HideKeyboard(ctx context.Context) error { return a.Back(ctx) }

// Launch starts pkg/activity via `am start`.
func (a *Adapter) Launch(ctx context.Context, pkg, activity string) error {
	_, err := a.shell(ctx, "am", "start", "-n", pkg+"/"+activity)
	return err
}

// Stop force-stops pkg.
func (a *Adapter) Stop(ctx context.Context, pkg string) error {
	_, err := a.shell(ctx, "am", "force-stop", pkg)
	return err
}

// GetDevices parses `adb devices` output into a list of device ids.
func (a *Adapter) GetDevices(ctx context.Context) ([]string, error) {
	out, err := a.run(ctx, "devices")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			ids = append(ids, fields[0])
		}
	}
	return ids, nil
}

// Capture takes a screenshot and dumps the accessibility tree into
// workarea, returning their paths.
func (a *Adapter) Capture(ctx context.Context, workarea string) (screenshotPath, treeXMLPath string, err error) {
	if err := os.MkdirAll(workarea, 0o755); err != nil {
		return "", "", fmt.Errorf("device: create workarea: %w", err)
	}

	const remoteShot = "/sdcard/tke_screenshot.png"
	const remoteTree = "/sdcard/tke_ui_tree.xml"

	if _, err := a.shell(ctx, "screencap", "-p", remoteShot); err != nil {
		return "", "", err
	}
	if _, err := a.shell(ctx, "uiautomator", "dump", remoteTree); err != nil {
		return "", "", err
	}

	screenshotPath = filepath.Join(workarea, "current_screenshot.png")
	treeXMLPath = filepath.Join(workarea, "current_ui_tree.xml")

	if _, err := a.run(ctx, "pull", remoteShot, screenshotPath); err != nil {
		return "", "", err
	}
	if _, err := a.run(ctx, "pull", remoteTree, treeXMLPath); err != nil {
		return "", "", err
	}

	a.shell(ctx, "rm", "-f", remoteShot)
	a.shell(ctx, "rm", "-f", remoteTree)

	return screenshotPath, treeXMLPath, nil
}

// DeviceInfo is the parsed `wm size` / `getprop` device metadata.
type DeviceInfo struct {
	Width, Height int
	Model         string
	AndroidVer    string
}

// GetDeviceInfo parses `wm size` and `getprop` output.
func (a *Adapter) GetDeviceInfo(ctx context.Context) (DeviceInfo, error) {
	var info DeviceInfo

	sizeOut, err := a.shell(ctx, "wm", "size")
	if err != nil {
		return info, err
	}
	if idx := strings.Index(sizeOut, ":"); idx >= 0 {
		dims := strings.TrimSpace(sizeOut[idx+1:])
		if w, h, ok := strings.Cut(dims, "x"); ok {
			info.Width, _ = strconv.Atoi(strings.TrimSpace(w))
			info.Height, _ = strconv.Atoi(strings.TrimSpace(h))
		}
	}

	model, err := a.shell(ctx, "getprop", "ro.product.model")
	if err == nil {
		info.Model = strings.TrimSpace(model)
	}
	ver, err := a.shell(ctx, "getprop", "ro.build.version.release")
	if err == nil {
		info.AndroidVer = strings.TrimSpace(ver)
	}
	return info, nil
}
