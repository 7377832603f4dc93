package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

func TestStripFenceRemovesJSONFence(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	require.Equal(t, `{"a":1}`, stripFence(in))
}

func TestStripFenceLeavesBareJSONUnchanged(t *testing.T) {
	in := `{"a":1}`
	require.Equal(t, in, stripFence(in))
}

func TestDecodeJSONFenceTolerant(t *testing.T) {
	var out types.AnalystOutput
	err := decodeJSON("```json\n{\"test_objective\":\"do the thing\"}\n```", &out)
	require.NoError(t, err)
	require.Equal(t, "do the thing", out.TestObjective)
}

func TestDecodeJSONInvalidReturnsErrorWithRawExcerpt(t *testing.T) {
	var out types.AnalystOutput
	err := decodeJSON("not json at all", &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not json at all")
}

func TestInstructionComposesAllFields(t *testing.T) {
	a := types.AnalystOutput{
		TestObjective:     "verify login",
		SuggestedApproach: []string{"open app", "tap login"},
		KeyPoints:         []string{"watch for error toast"},
		ExpectedOutcome:   "home screen shown",
	}
	s := Instruction(a)
	require.Contains(t, s, "verify login")
	require.Contains(t, s, "open app")
	require.Contains(t, s, "watch for error toast")
	require.Contains(t, s, "home screen shown")
}

func TestRetrieverSentinelOnMissingDir(t *testing.T) {
	r := &Retriever{}
	out := r.Retrieve(context.Background(), "case", "/does/not/exist")
	require.Empty(t, out.Items)
	require.Empty(t, out.Summary)
}

func TestRetrieverSentinelOnEmptyDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))
	r := &Retriever{}
	out := r.Retrieve(context.Background(), "case", dir)
	require.Empty(t, out.Items)
}

func TestJoinHistoryNewlineSeparated(t *testing.T) {
	s := joinHistory([]string{"[round 1] tapped login", "[round 2] entered password"})
	require.Contains(t, s, "[round 1] tapped login\n")
	require.Contains(t, s, "[round 2] entered password\n")
}

func TestErrHumanTakeoverMessage(t *testing.T) {
	err := &ErrHumanTakeover{Reason: "CAPTCHA shown"}
	require.Contains(t, err.Error(), "CAPTCHA shown")
}
