// Package translator turns a typed ActionDecision and the round's
// fused catalog into a script-line string and an executable plan for
// the interpreter.
package translator

import (
	"fmt"

	"github.com/bwan3150/test-toolkit-studio/internal/fuser"
	"github.com/bwan3150/test-toolkit-studio/internal/locator"
	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// waitDurationToken renders a millisecond duration as the grammar's
// "Ns" duration atom (seconds, rounded up) so execWait always takes
// the exact-duration branch instead of its raw-number seconds/ms guess.
func waitDurationToken(ms int) string {
	if ms <= 0 {
		ms = 1000
	}
	secs := ms / 1000
	if ms%1000 != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%ds", secs)
}

// Plan is the concrete, interpreter-ready action the translator
// derived from a decision.
type Plan struct {
	ScriptLine string
	Step       types.Step
}

// NameAllocator adds a catalog element to the locator store and
// returns the newly allocated name.
type NameAllocator interface {
	AddFromTree(e types.UIElement) (string, error)
}

// Translator turns decisions into script lines using the round's
// origin lookup to resolve target_element_id back to geometry, and
// the locator store to allocate stable names for structural targets.
type Translator struct {
	Store *locator.Store
}

func New(store *locator.Store) *Translator {
	return &Translator{Store: store}
}

// ErrMissingParam is returned when a decision lacks a parameter its
// action type requires.
type ErrMissingParam struct {
	Action types.ActionType
	Param  string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("translator: action %q requires %q", e.Action, e.Param)
}

// Translate implements the Action Translator contract. tree is the
// round's current UIElement list, needed to allocate a locator name
// for a target_element_id that originated from the tree.
func (t *Translator) Translate(d types.ActionDecision, catalog *fuser.ScreenStateWithCatalog, tree []types.UIElement) (Plan, error) {
	switch d.ActionType {
	case types.ActionClick:
		return t.translateTargeted(d, catalog, tree, "点击", "click")
	case types.ActionPress:
		return t.translateTargeted(d, catalog, tree, "长按", "press")
	case types.ActionInput:
		return t.translateInput(d, catalog, tree)
	case types.ActionClear:
		return t.translateTargeted(d, catalog, tree, "清空", "clear")
	case types.ActionSwipe, types.ActionDrag:
		return t.translateSwipe(d, catalog, tree)
	case types.ActionDirectionalDrag:
		return t.translateDirectionalDrag(d, catalog, tree)
	case types.ActionWait:
		return t.translateWait(d)
	case types.ActionBack:
		return Plan{ScriptLine: "返回", Step: types.Step{Command: "back"}}, nil
	case types.ActionHideKeyboard:
		return Plan{ScriptLine: "隐藏键盘", Step: types.Step{Command: "hide_keyboard"}}, nil
	case types.ActionLaunch:
		return t.translateLaunch(d)
	case types.ActionStop:
		return t.translateStop(d)
	case types.ActionAssert:
		return t.translateAssert(d, catalog, tree)
	case types.ActionNone:
		if d.TestCompleted {
			line := fmt.Sprintf("# test completed: %s", d.Reasoning)
			return Plan{ScriptLine: line, Step: types.Step{Command: "#", Raw: line}}, nil
		}
		return Plan{ScriptLine: "# no-op", Step: types.Step{Command: "#"}}, nil
	default:
		return Plan{}, fmt.Errorf("translator: unsupported action type %q", d.ActionType)
	}
}

func (t *Translator) allocateName(id int, catalog *fuser.ScreenStateWithCatalog, tree []types.UIElement) (string, error) {
	origin, ok := catalog.Lookup[id]
	if !ok {
		return "", fmt.Errorf("translator: target_element_id %d not present in this round's catalog", id)
	}
	if origin.Kind != types.KindTree {
		// OCR-origin target: allocate from the text element directly.
		text := fmt.Sprintf("ocr_%d", id)
		if merged := findMerged(catalog, id); merged != nil && merged.OriginalIndex < len(catalog.State.OcrTexts) {
			text = catalog.State.OcrTexts[merged.OriginalIndex].Text
		}
		w, h := 0, 0
		if origin.Bounds != nil {
			w = origin.Bounds.X2 - origin.Bounds.X1
			h = origin.Bounds.Y2 - origin.Bounds.Y1
		}
		return t.Store.AddFromOCR(text, origin.CenterX, origin.CenterY, w, h, types.Bounds{})
	}
	merged := findMerged(catalog, id)
	if merged == nil || merged.OriginalIndex >= len(tree) {
		return "", fmt.Errorf("translator: cannot locate tree element for id %d", id)
	}
	return t.Store.AddFromTree(tree[merged.OriginalIndex])
}

func findMerged(catalog *fuser.ScreenStateWithCatalog, id int) *types.MergedElement {
	for i := range catalog.State.MergedElements {
		if catalog.State.MergedElements[i].ID == id {
			return &catalog.State.MergedElements[i]
		}
	}
	return nil
}

func (t *Translator) translateTargeted(d types.ActionDecision, catalog *fuser.ScreenStateWithCatalog, tree []types.UIElement, verb, cmd string) (Plan, error) {
	if d.TargetElementID == nil {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "target_element_id"}
	}
	name, err := t.allocateName(*d.TargetElementID, catalog, tree)
	if err != nil {
		return Plan{}, err
	}
	line := fmt.Sprintf("%s [{%s}]", verb, name)
	return Plan{ScriptLine: line, Step: types.Step{Command: cmd, Params: []string{"{" + name + "}"}, Raw: line}}, nil
}

func (t *Translator) translateInput(d types.ActionDecision, catalog *fuser.ScreenStateWithCatalog, tree []types.UIElement) (Plan, error) {
	if d.TargetElementID == nil {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "target_element_id"}
	}
	name, err := t.allocateName(*d.TargetElementID, catalog, tree)
	if err != nil {
		return Plan{}, err
	}
	line := fmt.Sprintf("输入 [{%s}, \"%s\"]", name, d.Params.Text)
	return Plan{ScriptLine: line, Step: types.Step{Command: "input", Params: []string{"{" + name + "}", `"` + d.Params.Text + `"`}, Raw: line}}, nil
}

func (t *Translator) translateSwipe(d types.ActionDecision, catalog *fuser.ScreenStateWithCatalog, tree []types.UIElement) (Plan, error) {
	if d.TargetElementID == nil {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "target_element_id"}
	}
	if !d.Params.HasTo {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "params.to"}
	}
	name, err := t.allocateName(*d.TargetElementID, catalog, tree)
	if err != nil {
		return Plan{}, err
	}
	dur := d.Params.DurationMs
	if dur == 0 {
		dur = 300
	}
	line := fmt.Sprintf("滑动 [{%s}, {%d,%d}, %d]", name, d.Params.ToX, d.Params.ToY, dur)
	params := []string{
		"{" + name + "}",
		fmt.Sprintf("{%d,%d}", d.Params.ToX, d.Params.ToY),
		fmt.Sprintf("%d", dur),
	}
	return Plan{ScriptLine: line, Step: types.Step{Command: "swipe", Params: params, Raw: line}}, nil
}

func (t *Translator) translateDirectionalDrag(d types.ActionDecision, catalog *fuser.ScreenStateWithCatalog, tree []types.UIElement) (Plan, error) {
	if d.TargetElementID == nil {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "target_element_id"}
	}
	if d.Params.Direction == "" {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "params.direction"}
	}
	if d.Params.Distance == 0 {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "params.distance"}
	}
	name, err := t.allocateName(*d.TargetElementID, catalog, tree)
	if err != nil {
		return Plan{}, err
	}
	dur := d.Params.DurationMs
	if dur == 0 {
		dur = 300
	}
	dirWord := map[types.Direction]string{
		types.DirUp: "上", types.DirDown: "下", types.DirLeft: "左", types.DirRight: "右",
	}[d.Params.Direction]
	line := fmt.Sprintf("定向滑动 [{%s}, %s, %d, %d]", name, dirWord, d.Params.Distance, dur)
	params := []string{
		"{" + name + "}",
		dirWord,
		fmt.Sprintf("%d", d.Params.Distance),
		fmt.Sprintf("%d", dur),
	}
	return Plan{ScriptLine: line, Step: types.Step{Command: "directional_swipe", Params: params, Raw: line}}, nil
}

func (t *Translator) translateWait(d types.ActionDecision) (Plan, error) {
	dur := d.Params.DurationMs
	if dur == 0 {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "params.duration_ms"}
	}
	token := waitDurationToken(dur)
	line := fmt.Sprintf("等待 [%s]", token)
	params := []string{token}
	return Plan{ScriptLine: line, Step: types.Step{Command: "wait", Params: params, Raw: line}}, nil
}

func (t *Translator) translateLaunch(d types.ActionDecision) (Plan, error) {
	if d.Params.Package == "" {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "params.package"}
	}
	if d.Params.Activity == "" {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "params.activity"}
	}
	line := fmt.Sprintf("启动 [%s, %s]", d.Params.Package, d.Params.Activity)
	params := []string{`"` + d.Params.Package + `"`, `"` + d.Params.Activity + `"`}
	return Plan{ScriptLine: line, Step: types.Step{Command: "launch", Params: params, Raw: line}}, nil
}

func (t *Translator) translateStop(d types.ActionDecision) (Plan, error) {
	if d.Params.Package == "" {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "params.package"}
	}
	line := fmt.Sprintf("关闭 [%s]", d.Params.Package)
	params := []string{`"` + d.Params.Package + `"`}
	return Plan{ScriptLine: line, Step: types.Step{Command: "close", Params: params, Raw: line}}, nil
}

func (t *Translator) translateAssert(d types.ActionDecision, catalog *fuser.ScreenStateWithCatalog, tree []types.UIElement) (Plan, error) {
	if d.TargetElementID == nil {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "target_element_id"}
	}
	if d.Params.AssertCondition == "" {
		return Plan{}, &ErrMissingParam{Action: d.ActionType, Param: "params.assert_condition"}
	}
	name, err := t.allocateName(*d.TargetElementID, catalog, tree)
	if err != nil {
		return Plan{}, err
	}
	word := "存在"
	if d.Params.AssertCondition == types.AssertNotExists || d.Params.AssertCondition == types.AssertNotVisible {
		word = "不存在"
	}
	line := fmt.Sprintf("断言 [{%s}, %s]", name, word)
	params := []string{"{" + name + "}", word}
	return Plan{ScriptLine: line, Step: types.Step{Command: "assert", Params: params, Raw: line}}, nil
}
