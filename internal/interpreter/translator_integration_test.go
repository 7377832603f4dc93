package interpreter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bwan3150/test-toolkit-studio/internal/fuser"
	"github.com/bwan3150/test-toolkit-studio/internal/locator"
	"github.com/bwan3150/test-toolkit-studio/internal/translator"
	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// newTranslatedRig wires an Interpreter and a Translator against the
// same locator store, so a decision can be translated and the
// resulting Step executed end to end — covering the translator/
// interpreter Params contract that the two packages' unit tests don't
// individually exercise.
func newTranslatedRig(t *testing.T) (*Interpreter, *translator.Translator, *fuser.ScreenStateWithCatalog, []types.UIElement) {
	t.Helper()
	PostTapSettle = time.Millisecond
	PostClearSettle = time.Millisecond
	PostLaunchSettle = time.Millisecond

	dev := newFakeDevice(t)
	dir := t.TempDir()
	store := locator.NewStore(filepath.Join(dir, "element.json"))
	require.NoError(t, store.Load())
	resolver := locator.NewResolver(store, "")
	ip := New(dev, resolver, filepath.Join(dir, "workarea"))
	tr := translator.New(store)

	tree := []types.UIElement{
		{Index: 0, ClassName: "android.widget.Button", ResourceID: "com.app:id/login", Text: "Log in", Clickable: true, Enabled: true, Bounds: types.Bounds{X1: 100, Y1: 450, X2: 900, Y2: 520}},
	}
	catalog, err := fuser.Fuse(nil, tree, "", "")
	require.NoError(t, err)
	return ip, tr, catalog, tree
}

func TestTranslatedSwipeStepExecutes(t *testing.T) {
	ip, tr, catalog, tree := newTranslatedRig(t)
	id := 0
	d := types.ActionDecision{
		ActionType:      types.ActionSwipe,
		TargetElementID: &id,
		Params:          types.ActionParams{HasTo: true, ToX: 500, ToY: 1600, DurationMs: 300},
	}
	plan, err := tr.Translate(d, catalog, tree)
	require.NoError(t, err)
	require.Len(t, plan.Step.Params, 3)
	require.NoError(t, ip.Execute(context.Background(), plan.Step))
}

func TestTranslatedDirectionalDragStepExecutes(t *testing.T) {
	ip, tr, catalog, tree := newTranslatedRig(t)
	id := 0
	d := types.ActionDecision{
		ActionType:      types.ActionDirectionalDrag,
		TargetElementID: &id,
		Params:          types.ActionParams{Direction: types.DirUp, Distance: 400, DurationMs: 300},
	}
	plan, err := tr.Translate(d, catalog, tree)
	require.NoError(t, err)
	require.Len(t, plan.Step.Params, 4)
	require.NoError(t, ip.Execute(context.Background(), plan.Step))
}

func TestTranslatedWaitStepExecutes(t *testing.T) {
	ip, tr, _, _ := newTranslatedRig(t)
	d := types.ActionDecision{ActionType: types.ActionWait, Params: types.ActionParams{DurationMs: 1}}
	plan, err := tr.Translate(d, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"1s"}, plan.Step.Params)
	require.NoError(t, ip.Execute(context.Background(), plan.Step))
}

func TestTranslatedLaunchStepExecutes(t *testing.T) {
	ip, tr, _, _ := newTranslatedRig(t)
	d := types.ActionDecision{ActionType: types.ActionLaunch, Params: types.ActionParams{Package: "com.app", Activity: ".MainActivity"}}
	plan, err := tr.Translate(d, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{`"com.app"`, `".MainActivity"`}, plan.Step.Params)
	require.NoError(t, ip.Execute(context.Background(), plan.Step))
}

func TestTranslatedStopStepExecutes(t *testing.T) {
	ip, tr, _, _ := newTranslatedRig(t)
	d := types.ActionDecision{ActionType: types.ActionStop, Params: types.ActionParams{Package: "com.app"}}
	plan, err := tr.Translate(d, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{`"com.app"`}, plan.Step.Params)
	require.NoError(t, ip.Execute(context.Background(), plan.Step))
}

func TestTranslatedAssertStepExecutes(t *testing.T) {
	ip, tr, catalog, tree := newTranslatedRig(t)
	id := 0
	d := types.ActionDecision{
		ActionType:      types.ActionAssert,
		TargetElementID: &id,
		Params:          types.ActionParams{AssertCondition: types.AssertExists},
	}
	plan, err := tr.Translate(d, catalog, tree)
	require.NoError(t, err)
	require.Equal(t, []string{"{login}", "存在"}, plan.Step.Params)
	require.NoError(t, ip.Execute(context.Background(), plan.Step))
}
