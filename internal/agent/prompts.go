package agent

// analystPrompt builds the Analyst's single-turn instruction. Uses
// XML-style tags, following the same structuring convention the
// tool-calling agent's own system prompt uses.
func analystPrompt(caseName, caseDescription, appPackage string) string {
	return `You are a mobile test analyst. Given a test case, break it down into an
actionable objective before execution begins.

<case>
name: ` + caseName + `
description: ` + caseDescription + `
app_package: ` + appPackage + `
</case>

<output>
Respond with ONLY a JSON object (a ` + "```json" + ` fence is fine) shaped exactly as:
{
  "test_objective": "one sentence describing what must be verified",
  "suggested_approach": ["ordered steps a tester would take"],
  "key_points": ["things to watch for or verify along the way"],
  "expected_outcome": "what a pass looks like"
}
</output>`
}

// retrieverPrompt builds the Retriever's summarization instruction.
func retrieverPrompt(caseDescription, concatenatedDocs string) string {
	return `You are a knowledge retriever for a mobile test run. Summarize the
following reference material, focusing only on information relevant
to the case below. Ignore anything unrelated.

<case_description>
` + caseDescription + `
</case_description>

<reference_material>
` + concatenatedDocs + `
</reference_material>

<output>
Respond with ONLY a JSON object shaped exactly as:
{"items": ["short relevant facts"], "summary": "a short paragraph"}
</output>`
}

// reviewerPrompt builds the Reviewer's terminal-verdict instruction.
func reviewerPrompt(testObjective, screenDescription, historyTail, completionClaim string) string {
	return `You are reviewing whether a mobile test run actually achieved its
objective. The Actor claims the test is complete; verify that claim
against the objective, the current screen, and the recent round
history before accepting it.

<test_objective>
` + testObjective + `
</test_objective>

<current_screen>
` + screenDescription + `
</current_screen>

<round_history>
` + historyTail + `
</round_history>

<actor_completion_claim>
` + completionClaim + `
</actor_completion_claim>

<output>
Respond with ONLY a JSON object shaped exactly as:
{
  "kind": "incomplete" | "passed_normal" | "failed_with_bug",
  "feedback": "why you reached this verdict",
  "summary": "short summary of the outcome",
  "bug_description": "present only when kind is failed_with_bug"
}
Use "incomplete" when the claim is premature and the loop should continue.
</output>`
}

// actorInstruction returns the Actor's ADK system instruction. Tool
// shape mirrors the original single-tool-per-round contract: instead
// of many callable tools, the Actor calls one decide_action tool
// exactly once per round.
func actorInstruction() string {
	return `You are an autonomous mobile UI test actor. Each round you are given
the test objective, a knowledge summary, a textual description of the
current screen's numbered element catalog, the round index, and the
textual history of prior rounds. Decide exactly one next action and
call decide_action with it — never respond with plain text.

<element_catalog>
Elements are given as "[id] description" lines. Reference an element
by its numeric id via target_element_id; omit it for actions that do
not target an element (wait on a duration, back, launch, stop).
</element_catalog>

<action_types>
click, press, swipe, drag, directional_drag, input, clear,
hide_keyboard, wait, back, launch, stop, assert, read_text, none
</action_types>

<completion>
Set test_completed=true only when you believe the objective has been
achieved or definitively failed; a reviewer will independently verify
your claim before the run terminates.
</completion>

<stuck>
If you cannot make progress after repeated attempts, call
request_human_takeover with a clear reason instead of guessing.
</stuck>`
}
