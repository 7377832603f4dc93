package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// Reviewer renders a terminal verdict for a completion claim.
type Reviewer struct {
	Transport *Transport
}

// Review runs the single-turn Reviewer completion. historyTail should
// already be bounded by the caller (at least the last five rounds,
// per the orchestrator's contract).
func (r *Reviewer) Review(ctx context.Context, testObjective, screenDescription string, historyTail []string, completionClaim string) (types.ReviewVerdict, error) {
	raw, err := r.Transport.complete(ctx, reviewerPrompt(testObjective, screenDescription, strings.Join(historyTail, "\n"), completionClaim))
	if err != nil {
		return types.ReviewVerdict{}, fmt.Errorf("reviewer: %w", err)
	}
	var out types.ReviewVerdict
	if err := decodeJSON(raw, &out); err != nil {
		return types.ReviewVerdict{}, fmt.Errorf("reviewer: %w", err)
	}
	switch out.Kind {
	case types.VerdictIncomplete, types.VerdictPassedNormal, types.VerdictFailedWithBug:
	default:
		return types.ReviewVerdict{}, fmt.Errorf("reviewer: unrecognized verdict kind %q", out.Kind)
	}
	return out, nil
}
