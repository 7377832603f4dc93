package translator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bwan3150/test-toolkit-studio/internal/fuser"
	"github.com/bwan3150/test-toolkit-studio/internal/locator"
	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

func buildCatalog(t *testing.T) (*fuser.ScreenStateWithCatalog, []types.UIElement) {
	tree := []types.UIElement{
		{Index: 0, ClassName: "android.widget.Button", ResourceID: "com.app:id/login", Text: "Log in", Clickable: true, Bounds: types.Bounds{X1: 0, Y1: 0, X2: 100, Y2: 40}},
	}
	res, err := fuser.Fuse(nil, tree, "", "")
	require.NoError(t, err)
	return res, tree
}

func newTranslator(t *testing.T) *Translator {
	dir := t.TempDir()
	s := locator.NewStore(filepath.Join(dir, "element.json"))
	require.NoError(t, s.Load())
	return New(s)
}

func TestTranslateClickAllocatesNameAndEmitsLine(t *testing.T) {
	catalog, tree := buildCatalog(t)
	tr := newTranslator(t)
	id := 0
	d := types.ActionDecision{ActionType: types.ActionClick, TargetElementID: &id}
	plan, err := tr.Translate(d, catalog, tree)
	require.NoError(t, err)
	require.Contains(t, plan.ScriptLine, "点击 [{")
	require.Equal(t, "click", plan.Step.Command)
}

func TestTranslateClickMissingTargetErrors(t *testing.T) {
	catalog, tree := buildCatalog(t)
	tr := newTranslator(t)
	d := types.ActionDecision{ActionType: types.ActionClick}
	_, err := tr.Translate(d, catalog, tree)
	require.Error(t, err)
	var missing *ErrMissingParam
	require.ErrorAs(t, err, &missing)
}

func TestTranslateInputEmitsTextLine(t *testing.T) {
	catalog, tree := buildCatalog(t)
	tr := newTranslator(t)
	id := 0
	d := types.ActionDecision{ActionType: types.ActionInput, TargetElementID: &id, Params: types.ActionParams{Text: "hello"}}
	plan, err := tr.Translate(d, catalog, tree)
	require.NoError(t, err)
	require.Contains(t, plan.ScriptLine, `"hello"`)
}

func TestTranslateDirectionalDragComputesLine(t *testing.T) {
	catalog, tree := buildCatalog(t)
	tr := newTranslator(t)
	id := 0
	d := types.ActionDecision{
		ActionType:      types.ActionDirectionalDrag,
		TargetElementID: &id,
		Params:          types.ActionParams{Direction: types.DirUp, Distance: 400, DurationMs: 500},
	}
	plan, err := tr.Translate(d, catalog, tree)
	require.NoError(t, err)
	require.Contains(t, plan.ScriptLine, "定向滑动")
	require.Contains(t, plan.ScriptLine, "上")
	require.Contains(t, plan.ScriptLine, "400")
	require.Contains(t, plan.ScriptLine, ", 500]")
	require.Equal(t, []string{"{login}", "上", "400", "500"}, plan.Step.Params)
}

func TestTranslateSwipePopulatesStepParams(t *testing.T) {
	catalog, tree := buildCatalog(t)
	tr := newTranslator(t)
	id := 0
	d := types.ActionDecision{
		ActionType:      types.ActionSwipe,
		TargetElementID: &id,
		Params:          types.ActionParams{HasTo: true, ToX: 200, ToY: 300, DurationMs: 400},
	}
	plan, err := tr.Translate(d, catalog, tree)
	require.NoError(t, err)
	require.Equal(t, "swipe", plan.Step.Command)
	require.Equal(t, []string{"{login}", "{200,300}", "400"}, plan.Step.Params)
}

func TestTranslateWaitPopulatesStepParams(t *testing.T) {
	catalog, tree := buildCatalog(t)
	tr := newTranslator(t)
	d := types.ActionDecision{ActionType: types.ActionWait, Params: types.ActionParams{DurationMs: 2000}}
	plan, err := tr.Translate(d, catalog, tree)
	require.NoError(t, err)
	require.Equal(t, "wait", plan.Step.Command)
	require.Equal(t, []string{"2s"}, plan.Step.Params)
}

func TestTranslateWaitSubSecondRoundsUp(t *testing.T) {
	tr := newTranslator(t)
	d := types.ActionDecision{ActionType: types.ActionWait, Params: types.ActionParams{DurationMs: 250}}
	plan, err := tr.Translate(d, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"1s"}, plan.Step.Params)
}

func TestTranslateLaunchPopulatesStepParams(t *testing.T) {
	tr := newTranslator(t)
	d := types.ActionDecision{ActionType: types.ActionLaunch, Params: types.ActionParams{Package: "com.app", Activity: ".Main"}}
	plan, err := tr.Translate(d, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "launch", plan.Step.Command)
	require.Equal(t, []string{`"com.app"`, `".Main"`}, plan.Step.Params)
}

func TestTranslateStopPopulatesStepParams(t *testing.T) {
	tr := newTranslator(t)
	d := types.ActionDecision{ActionType: types.ActionStop, Params: types.ActionParams{Package: "com.app"}}
	plan, err := tr.Translate(d, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "close", plan.Step.Command)
	require.Equal(t, []string{`"com.app"`}, plan.Step.Params)
}

func TestTranslateNoneWithCompletionEmitsComment(t *testing.T) {
	catalog, tree := buildCatalog(t)
	tr := newTranslator(t)
	d := types.ActionDecision{ActionType: types.ActionNone, TestCompleted: true, Reasoning: "done"}
	plan, err := tr.Translate(d, catalog, tree)
	require.NoError(t, err)
	require.Equal(t, "#", plan.Step.Command)
	require.Contains(t, plan.ScriptLine, "done")
}

func TestTranslateLaunchRequiresPackageAndActivity(t *testing.T) {
	catalog, tree := buildCatalog(t)
	tr := newTranslator(t)
	d := types.ActionDecision{ActionType: types.ActionLaunch, Params: types.ActionParams{Package: "com.app"}}
	_, err := tr.Translate(d, catalog, tree)
	require.Error(t, err)
}
