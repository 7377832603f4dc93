// Package interpreter executes a parsed Step against the Device
// Adapter and the Locator Resolver — the Script Interpreter (C8).
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bwan3150/test-toolkit-studio/internal/device"
	"github.com/bwan3150/test-toolkit-studio/internal/fetcher"
	"github.com/bwan3150/test-toolkit-studio/internal/locator"
	"github.com/bwan3150/test-toolkit-studio/internal/script"
	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// Defaults mirror the fixed timing constants of the original engine.
// The settle and poll timings in the var block below are declared as
// vars, not consts, so tests can shrink them instead of waiting out
// real device settle times.
const (
	DefaultPressDurationMs = 1000
	DefaultSwipeDurationMs = 300
)

var (
	PostTapSettle    = 500 * time.Millisecond
	PostClearSettle  = 200 * time.Millisecond
	PostLaunchSettle = 2 * time.Second
	WaitPollInterval = 1 * time.Second
	WaitHardCeiling  = 30 * time.Second
)

// StepError wraps a failure with the offending step's source-line context.
type StepError struct {
	Line int
	Raw  string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("interpreter: line %d (%q): %v", e.Line, e.Raw, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ErrTimeout is returned when a wait-for-element poll exhausts its ceiling.
var ErrTimeout = errors.New("interpreter: wait timed out")

// ErrAssertionFailed is returned when an assert step's observed
// existence does not match the expected condition.
var ErrAssertionFailed = errors.New("interpreter: assertion failed")

// Interpreter holds per-run device/resolver state and the current
// screen snapshot, refreshed before each structural/image/text
// resolution as required by the spec.
type Interpreter struct {
	Device   *device.Adapter
	Resolver *locator.Resolver
	Workarea string

	currentTree           []types.UIElement
	currentScreenshotPath string
}

func New(d *device.Adapter, r *locator.Resolver, workarea string) *Interpreter {
	return &Interpreter{Device: d, Resolver: r, Workarea: workarea}
}

// Refresh captures a fresh screenshot + tree and reparses it.
func (ip *Interpreter) Refresh(ctx context.Context) error {
	shotPath, treePath, err := ip.Device.Capture(ctx, ip.Workarea)
	if err != nil {
		return fmt.Errorf("interpreter: capture: %w", err)
	}
	raw, err := readFile(treePath)
	if err != nil {
		return fmt.Errorf("interpreter: read tree: %w", err)
	}
	els, err := fetcher.Parse(raw)
	if err != nil {
		return fmt.Errorf("interpreter: parse tree: %w", err)
	}
	ip.currentTree = els
	ip.currentScreenshotPath = shotPath
	return nil
}

// Execute runs one step, wrapping any failure with source-line context.
// A cancelled ctx stops it before the step is dispatched.
func (ip *Interpreter) Execute(ctx context.Context, step types.Step) error {
	if err := ctx.Err(); err != nil {
		return &StepError{Line: step.Line, Raw: step.Raw, Err: err}
	}
	err := ip.dispatch(ctx, step)
	if err != nil {
		return &StepError{Line: step.Line, Raw: step.Raw, Err: err}
	}
	return nil
}

func (ip *Interpreter) dispatch(ctx context.Context, step types.Step) error {
	switch step.Command {
	case "launch":
		return ip.execLaunch(ctx, step)
	case "close":
		return ip.execClose(ctx, step)
	case "click":
		return ip.execClick(ctx, step)
	case "press":
		return ip.execPress(ctx, step)
	case "swipe":
		return ip.execSwipe(ctx, step)
	case "directional_swipe":
		return ip.execDirectionalSwipe(ctx, step)
	case "input":
		return ip.execInput(ctx, step)
	case "clear":
		return ip.execClear(ctx, step)
	case "hide_keyboard":
		return ip.Device.HideKeyboard(ctx)
	case "back":
		return ip.Device.Back(ctx)
	case "wait":
		return ip.execWait(ctx, step)
	case "assert":
		return ip.execAssert(ctx, step)
	case "#":
		return nil
	default:
		return fmt.Errorf("interpreter: unknown command %q", step.Command)
	}
}

func (ip *Interpreter) execLaunch(ctx context.Context, step types.Step) error {
	if len(step.Params) < 2 {
		return fmt.Errorf("launch requires package and activity")
	}
	pkg := script.ParseAtom(step.Params[0]).Text
	act := script.ParseAtom(step.Params[1]).Text
	if err := ip.Device.Launch(ctx, pkg, act); err != nil {
		return err
	}
	time.Sleep(PostLaunchSettle)
	return ip.Refresh(ctx)
}

func (ip *Interpreter) execClose(ctx context.Context, step types.Step) error {
	if len(step.Params) < 1 {
		return fmt.Errorf("close requires a package name")
	}
	pkg := script.ParseAtom(step.Params[0]).Text
	return ip.Device.Stop(ctx, pkg)
}

func (ip *Interpreter) execClick(ctx context.Context, step types.Step) error {
	if len(step.Params) < 1 {
		return fmt.Errorf("click requires a target")
	}
	pt, err := ip.resolveTarget(ctx, step.Params[0])
	if err != nil {
		return err
	}
	return ip.Device.Tap(ctx, pt.X, pt.Y)
}

func (ip *Interpreter) execPress(ctx context.Context, step types.Step) error {
	if len(step.Params) < 1 {
		return fmt.Errorf("press requires a target")
	}
	pt, err := ip.resolveTarget(ctx, step.Params[0])
	if err != nil {
		return err
	}
	dur := DefaultPressDurationMs
	if len(step.Params) > 1 {
		if a := script.ParseAtom(step.Params[1]); a.Kind == script.AtomDuration || a.Kind == script.AtomNumber {
			dur = a.Number
		}
	}
	return ip.Device.Press(ctx, pt.X, pt.Y, dur)
}

func (ip *Interpreter) execSwipe(ctx context.Context, step types.Step) error {
	if len(step.Params) < 2 {
		return fmt.Errorf("swipe requires from and to targets")
	}
	from, err := ip.resolveTarget(ctx, step.Params[0])
	if err != nil {
		return err
	}
	to, err := ip.resolveTarget(ctx, step.Params[1])
	if err != nil {
		return err
	}
	dur := DefaultSwipeDurationMs
	if len(step.Params) > 2 {
		if a := script.ParseAtom(step.Params[2]); a.Kind == script.AtomDuration || a.Kind == script.AtomNumber {
			dur = a.Number
		}
	}
	return ip.Device.Swipe(ctx, from.X, from.Y, to.X, to.Y, dur)
}

func (ip *Interpreter) execDirectionalSwipe(ctx context.Context, step types.Step) error {
	if len(step.Params) < 3 {
		return fmt.Errorf("directional_swipe requires origin, direction, distance")
	}
	origin, err := ip.resolveTarget(ctx, step.Params[0])
	if err != nil {
		return err
	}
	dirAtom := script.ParseAtom(step.Params[1])
	distAtom := script.ParseAtom(step.Params[2])
	dur := DefaultSwipeDurationMs
	if len(step.Params) > 3 {
		if a := script.ParseAtom(step.Params[3]); a.Kind == script.AtomDuration || a.Kind == script.AtomNumber {
			dur = a.Number
		}
	}
	toX, toY := origin.X, origin.Y
	switch dirAtom.Direction {
	case types.DirUp:
		toY -= distAtom.Number
	case types.DirDown:
		toY += distAtom.Number
	case types.DirLeft:
		toX -= distAtom.Number
	case types.DirRight:
		toX += distAtom.Number
	}
	return ip.Device.Swipe(ctx, origin.X, origin.Y, toX, toY, dur)
}

func (ip *Interpreter) execInput(ctx context.Context, step types.Step) error {
	if len(step.Params) < 2 {
		return fmt.Errorf("input requires a target and text")
	}
	pt, err := ip.resolveTarget(ctx, step.Params[0])
	if err != nil {
		return err
	}
	text := script.ParseAtom(step.Params[1]).Text

	if err := ip.Device.Tap(ctx, pt.X, pt.Y); err != nil {
		return err
	}
	time.Sleep(PostTapSettle)
	if err := ip.Device.ClearInput(ctx); err != nil {
		return err
	}
	time.Sleep(PostClearSettle)

	if device.ContainsChinese(text) {
		return ip.execChineseInput(ctx, text)
	}
	return ip.Device.InputText(ctx, text)
}

// execChineseInput switches to the ADBKeyboard IME for text adb's
// plain `input text` cannot represent, types it via that IME's
// broadcast receiver, then restores whatever IME was active before.
func (ip *Interpreter) execChineseInput(ctx context.Context, text string) error {
	prev, err := ip.Device.CurrentIME(ctx)
	if err != nil {
		return err
	}
	if err := ip.Device.SetIME(ctx, device.AdbKeyboardIME); err != nil {
		return err
	}
	defer func() {
		if prev != "" && prev != device.AdbKeyboardIME {
			ip.Device.SetIME(ctx, prev)
		}
	}()
	return ip.Device.InputUnicodeText(ctx, text)
}

func (ip *Interpreter) execClear(ctx context.Context, step types.Step) error {
	if len(step.Params) >= 1 {
		pt, err := ip.resolveTarget(ctx, step.Params[0])
		if err != nil {
			return err
		}
		if err := ip.Device.Tap(ctx, pt.X, pt.Y); err != nil {
			return err
		}
		time.Sleep(PostTapSettle)
	}
	return ip.Device.ClearInput(ctx)
}

func (ip *Interpreter) execWait(ctx context.Context, step types.Step) error {
	if len(step.Params) < 1 {
		return fmt.Errorf("wait requires a duration or target")
	}
	atom := script.ParseAtom(step.Params[0])
	switch atom.Kind {
	case script.AtomDuration:
		time.Sleep(time.Duration(atom.Number) * time.Millisecond)
		return nil
	case script.AtomNumber:
		secs := atom.Number
		if secs <= 3600 {
			time.Sleep(time.Duration(secs) * time.Second)
		} else {
			time.Sleep(time.Duration(secs) * time.Millisecond)
		}
		return nil
	case script.AtomElement, script.AtomImage:
		return ip.pollForElement(ctx, step.Params[0])
	case script.AtomText:
		if secs, err := strconv.Atoi(atom.Text); err == nil {
			time.Sleep(time.Duration(secs) * time.Second)
			return nil
		}
		return fmt.Errorf("wait: unrecognized parameter %q", atom.Text)
	default:
		return fmt.Errorf("wait: unsupported parameter kind %q", atom.Kind)
	}
}

func (ip *Interpreter) pollForElement(ctx context.Context, tok string) error {
	deadline := time.Now().Add(WaitHardCeiling)
	for {
		if err := ip.Refresh(ctx); err != nil {
			return err
		}
		if _, err := ip.resolveTargetNoRefresh(tok); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(WaitPollInterval):
		}
	}
}

func (ip *Interpreter) execAssert(ctx context.Context, step types.Step) error {
	if len(step.Params) < 2 {
		return fmt.Errorf("assert requires a target and condition")
	}
	if err := ip.Refresh(ctx); err != nil {
		return err
	}
	_, resolveErr := ip.resolveTargetNoRefresh(step.Params[0])
	exists := resolveErr == nil

	condAtom := script.ParseAtom(step.Params[1])
	expected := condAtom.Bool

	if exists != expected {
		return fmt.Errorf("%w: expected exists=%v, observed exists=%v", ErrAssertionFailed, expected, exists)
	}
	return nil
}

// resolveTarget refreshes the screen before resolving any structural,
// image or text target, per §4.7; coordinate targets never refresh.
func (ip *Interpreter) resolveTarget(ctx context.Context, tok string) (locator.Point, error) {
	atom := script.ParseAtom(tok)
	if atom.Kind == script.AtomCoord {
		return locator.Point{X: atom.X, Y: atom.Y}, nil
	}
	if err := ip.Refresh(ctx); err != nil {
		return locator.Point{}, err
	}
	return ip.resolveTargetNoRefresh(tok)
}

func (ip *Interpreter) resolveTargetNoRefresh(tok string) (locator.Point, error) {
	atom := script.ParseAtom(tok)
	switch atom.Kind {
	case script.AtomCoord:
		return locator.Point{X: atom.X, Y: atom.Y}, nil
	case script.AtomElement:
		return ip.Resolver.Resolve(atom.RefName, atom.Strategy, ip.currentScreenshotPath, ip.currentTree)
	case script.AtomImage:
		return ip.Resolver.ResolveImage(context.Background(), atom.ImageRef, ip.currentScreenshotPath, locator.DefaultImageThreshold)
	case script.AtomText:
		return ip.Resolver.ResolveText(atom.Text, ip.currentTree)
	default:
		return locator.Point{}, fmt.Errorf("interpreter: %q is not a resolvable target", tok)
	}
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
