package interpreter

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bwan3150/test-toolkit-studio/internal/device"
	"github.com/bwan3150/test-toolkit-studio/internal/locator"
	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

const fixtureXML = `<?xml version="1.0"?>
<hierarchy>
  <node class="android.widget.Button" resource-id="com.app:id/login" text="Log in" bounds="[100,450][900,520]" clickable="true" enabled="true"/>
</hierarchy>`

// newFakeDevice builds an Adapter backed by a shell script that
// answers `screencap`/`uiautomator dump` as no-ops and `pull` by
// copying a fixture screenshot/tree into the requested destination,
// exercising the real Capture path end to end.
func newFakeDevice(t *testing.T) *device.Adapter {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb script requires a POSIX shell")
	}
	dir := t.TempDir()
	fixtureTree := filepath.Join(dir, "fixture_tree.xml")
	require.NoError(t, os.WriteFile(fixtureTree, []byte(fixtureXML), 0o644))
	fixtureShot := filepath.Join(dir, "fixture_shot.png")
	require.NoError(t, os.WriteFile(fixtureShot, []byte("fake-png"), 0o644))

	script := "#!/bin/sh\n" +
		"case \"$1\" in\n" +
		"  shell) exit 0 ;;\n" +
		"  pull)\n" +
		"    case \"$2\" in\n" +
		"      *ui_tree*) cp " + fixtureTree + " \"$3\" ;;\n" +
		"      *) cp " + fixtureShot + " \"$3\" ;;\n" +
		"    esac\n" +
		"    ;;\n" +
		"esac\n"
	path := filepath.Join(dir, "adb")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return device.New(path, "")
}

func newTestInterpreter(t *testing.T) *Interpreter {
	PostTapSettle = time.Millisecond
	PostClearSettle = time.Millisecond
	PostLaunchSettle = time.Millisecond
	WaitPollInterval = 10 * time.Millisecond
	WaitHardCeiling = 100 * time.Millisecond

	dev := newFakeDevice(t)
	dir := t.TempDir()
	store := locator.NewStore(filepath.Join(dir, "element.json"))
	require.NoError(t, store.Load())
	name, err := store.AddFromTree(types.UIElement{
		ClassName:  "android.widget.Button",
		ResourceID: "com.app:id/login",
		Text:       "Log in",
		Clickable:  true,
		Enabled:    true,
		Bounds:     types.Bounds{X1: 100, Y1: 450, X2: 900, Y2: 520},
	})
	require.NoError(t, err)
	require.Equal(t, "login", name)

	resolver := locator.NewResolver(store, "")
	return New(dev, resolver, filepath.Join(dir, "workarea"))
}

func TestRefreshParsesTree(t *testing.T) {
	ip := newTestInterpreter(t)
	require.NoError(t, ip.Refresh(context.Background()))
	require.Len(t, ip.currentTree, 1)
	require.Equal(t, "com.app:id/login", ip.currentTree[0].ResourceID)
}

func TestExecuteClickResolvesStructuralTarget(t *testing.T) {
	ip := newTestInterpreter(t)
	step := types.Step{Command: "click", Params: []string{"{login}"}, Line: 1, Raw: "点击 [{login}]"}
	require.NoError(t, ip.Execute(context.Background(), step))
}

func TestExecuteClickCoordinateSkipsRefresh(t *testing.T) {
	ip := newTestInterpreter(t)
	step := types.Step{Command: "click", Params: []string{"{10,20}"}, Line: 1}
	require.NoError(t, ip.Execute(context.Background(), step))
	require.Nil(t, ip.currentTree) // never refreshed
}

func TestExecuteUnknownTargetErrorsWithLineContext(t *testing.T) {
	ip := newTestInterpreter(t)
	step := types.Step{Command: "click", Params: []string{"{missing}"}, Line: 7, Raw: "点击 [{missing}]"}
	err := ip.Execute(context.Background(), step)
	require.Error(t, err)
	var se *StepError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 7, se.Line)
}

func TestExecuteWaitTimesOutForMissingElement(t *testing.T) {
	ip := newTestInterpreter(t)
	step := types.Step{Command: "wait", Params: []string{"{missing}"}, Line: 1}
	err := ip.Execute(context.Background(), step)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestExecuteAssertSucceedsOnMatchingExistence(t *testing.T) {
	ip := newTestInterpreter(t)
	step := types.Step{Command: "assert", Params: []string{"{login}", "存在"}, Line: 1}
	require.NoError(t, ip.Execute(context.Background(), step))
}

func TestExecuteAssertFailsOnMismatch(t *testing.T) {
	ip := newTestInterpreter(t)
	step := types.Step{Command: "assert", Params: []string{"{login}", "不存在"}, Line: 1}
	err := ip.Execute(context.Background(), step)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAssertionFailed)
}

func TestExecuteDirectionalSwipeComputesEndpoint(t *testing.T) {
	ip := newTestInterpreter(t)
	step := types.Step{Command: "directional_swipe", Params: []string{"{500,1600}", "上", "400", "500"}, Line: 1}
	require.NoError(t, ip.Execute(context.Background(), step))
}

func TestExecuteInputWithChineseTextSwitchesIME(t *testing.T) {
	ip := newTestInterpreter(t)
	step := types.Step{Command: "input", Params: []string{"{login}", `"你好"`}, Line: 1}
	require.NoError(t, ip.Execute(context.Background(), step))
}

func TestExecuteInputWithAsciiTextSkipsIMESwitch(t *testing.T) {
	ip := newTestInterpreter(t)
	step := types.Step{Command: "input", Params: []string{"{login}", `"hello"`}, Line: 1}
	require.NoError(t, ip.Execute(context.Background(), step))
}
