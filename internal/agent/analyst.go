package agent

import (
	"context"
	"fmt"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// Analyst turns a raw test case into an executable objective.
type Analyst struct {
	Transport *Transport
}

// Analyze runs the single-turn Analyst completion.
func (a *Analyst) Analyze(ctx context.Context, caseName, caseDescription, appPackage string) (types.AnalystOutput, error) {
	raw, err := a.Transport.complete(ctx, analystPrompt(caseName, caseDescription, appPackage))
	if err != nil {
		return types.AnalystOutput{}, fmt.Errorf("analyst: %w", err)
	}
	var out types.AnalystOutput
	if err := decodeJSON(raw, &out); err != nil {
		return types.AnalystOutput{}, fmt.Errorf("analyst: %w", err)
	}
	return out, nil
}

// Instruction composes the Actor's per-run instruction from the
// Analyst's output, per the orchestrator's contract.
func Instruction(a types.AnalystOutput) string {
	s := a.TestObjective + "\n\nSuggested approach:\n"
	for _, step := range a.SuggestedApproach {
		s += "- " + step + "\n"
	}
	s += "\nKey points:\n"
	for _, p := range a.KeyPoints {
		s += "- " + p + "\n"
	}
	s += "\nExpected outcome: " + a.ExpectedOutcome
	return s
}
