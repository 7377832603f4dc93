// Package orchestrator drives the perceive → decide → translate →
// execute → review loop that ties every other component together
// into one test run, and persists its script and report — the Test
// Orchestrator (C10).
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bwan3150/test-toolkit-studio/internal/agent"
	"github.com/bwan3150/test-toolkit-studio/internal/applog"
	"github.com/bwan3150/test-toolkit-studio/internal/device"
	"github.com/bwan3150/test-toolkit-studio/internal/fetcher"
	"github.com/bwan3150/test-toolkit-studio/internal/fuser"
	"github.com/bwan3150/test-toolkit-studio/internal/interpreter"
	"github.com/bwan3150/test-toolkit-studio/internal/locator"
	"github.com/bwan3150/test-toolkit-studio/internal/ocrsvc"
	"github.com/bwan3150/test-toolkit-studio/internal/translator"
	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// Status is the run's terminal process status, distinct from the
// test's pass/fail Result.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Result is the test's pass/fail/inconclusive outcome.
type Result string

const (
	ResultPassed     Result = "passed"
	ResultFailedBug  Result = "failed_with_bug"
	ResultIncomplete Result = "incomplete"
	ResultError      Result = "error"
)

// Input is the run's recognized request shape (§6 of the external
// interface contract).
type Input struct {
	TestCaseID          string `json:"test_case_id"`
	TestCaseName        string `json:"test_case_name"`
	TestCaseDescription string `json:"test_case_description"`
	AppPackage          string `json:"app_package"`
	AppActivity         string `json:"app_activity"`
	MaxRounds           int    `json:"max_rounds"`
	KnowledgeBaseDir    string `json:"knowledge_base_dir,omitempty"`
	ScriptOutputDir     string `json:"script_output_dir,omitempty"`
	Workarea            string `json:"workarea,omitempty"`
}

// Report is the final JSON emitted on stdout.
type Report struct {
	Success     bool             `json:"success"`
	TestCaseID  string           `json:"test_case_id"`
	Status      Status           `json:"status"`
	Result      Result           `json:"result"`
	ScriptPath  string           `json:"script_path,omitempty"`
	TotalRounds int              `json:"total_rounds"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	Error       string           `json:"error,omitempty"`
	Logs        []types.RoundLog `json:"logs"`
}

const defaultMaxRounds = 30

// Analyzer, Knower, Recognizer, Decider and Verdicter are the narrow
// interfaces the orchestrator calls through — satisfied by
// agent.Analyst/Retriever/Actor/Reviewer and ocrsvc.Adapter in
// production, and by fakes in tests that would otherwise need a live
// model or device.
type Analyzer interface {
	Analyze(ctx context.Context, caseName, caseDescription, appPackage string) (types.AnalystOutput, error)
}

type Knower interface {
	Retrieve(ctx context.Context, caseDescription, dir string) types.RetrieverOutput
}

type Recognizer interface {
	Recognize(ctx context.Context, imageBytes []byte, mode ocrsvc.Mode, param string) ([]types.OcrText, error)
}

type Decider interface {
	Decide(ctx context.Context, in agent.RoundInput) (types.ActionDecision, error)
}

type Verdicter interface {
	Review(ctx context.Context, testObjective, screenDescription string, historyTail []string, completionClaim string) (types.ReviewVerdict, error)
}

// Deps bundles every collaborator the orchestrator drives. Each field
// is the already-constructed component; the orchestrator owns none of
// their lifecycles beyond calling them in sequence.
type Deps struct {
	Device      *device.Adapter
	OCR         Recognizer
	Store       *locator.Store
	Resolver    *locator.Resolver
	Interpreter *interpreter.Interpreter
	Translator  *translator.Translator
	Analyst     Analyzer
	Retriever   Knower
	Actor       Decider
	Reviewer    Verdicter
	Logger      *applog.Logger

	OCRMode  ocrsvc.Mode
	OCRParam string
}

// Orchestrator runs one test case end to end.
type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = applog.NewLogger(false)
	}
	return &Orchestrator{deps: deps}
}

// Run executes the full loop described in the orchestrator's contract
// and returns the terminal Report. It never returns a non-nil error
// itself — every failure is captured in the returned Report so callers
// can always persist and print it.
func (o *Orchestrator) Run(ctx context.Context, in Input) *Report {
	start := time.Now()
	report := &Report{TestCaseID: in.TestCaseID, StartTime: start, Logs: []types.RoundLog{}}

	maxRounds := in.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	workarea := in.Workarea
	if workarea == "" {
		workarea = filepath.Join(os.TempDir(), "tke-"+in.TestCaseID)
	}
	if err := os.MkdirAll(workarea, 0o755); err != nil {
		return fail(report, start, fmt.Sprintf("create workarea: %v", err))
	}

	o.deps.Logger.StartRun()

	analysis, err := o.deps.Analyst.Analyze(ctx, in.TestCaseName, in.TestCaseDescription, in.AppPackage)
	if err != nil {
		return fail(report, start, err.Error())
	}
	instruction := agent.Instruction(analysis)

	knowledge := o.deps.Retriever.Retrieve(ctx, in.TestCaseDescription, in.KnowledgeBaseDir)

	if err := o.deps.Device.Launch(ctx, in.AppPackage, in.AppActivity); err != nil {
		if ctx.Err() != nil {
			return interrupted(report, start)
		}
		return fail(report, start, fmt.Sprintf("launch app: %v", err))
	}
	select {
	case <-ctx.Done():
		return interrupted(report, start)
	case <-time.After(2 * time.Second):
	}

	var scriptLines []string
	var history []string

	for round := 1; round <= maxRounds; round++ {
		if ctx.Err() != nil {
			return interrupted(report, start)
		}

		roundLog := types.RoundLog{Round: round, Timestamp: time.Now()}

		catalog, tree, err := o.perceive(ctx, workarea)
		if err != nil {
			roundLog.Error = err.Error()
			report.Logs = append(report.Logs, roundLog)
			return fail(report, start, err.Error())
		}
		roundLog.Observation = catalog.Description
		o.deps.Logger.Perceive(catalog.State.ScreenshotPath, len(catalog.State.MergedElements))

		if ctx.Err() != nil {
			return interrupted(report, start)
		}

		decision, err := o.deps.Actor.Decide(ctx, agent.RoundInput{
			Instruction:       instruction,
			KnowledgeSummary:  knowledge.Summary,
			ScreenDescription: catalog.Description,
			Round:             round,
			History:           history,
		})
		if err != nil {
			if takeover, ok := err.(*agent.ErrHumanTakeover); ok {
				o.deps.Logger.HumanTakeover(takeover.Reason)
				roundLog.Error = takeover.Error()
				report.Logs = append(report.Logs, roundLog)
				return fail(report, start, takeover.Error())
			}
			roundLog.Error = err.Error()
			report.Logs = append(report.Logs, roundLog)
			return fail(report, start, err.Error())
		}
		roundLog.Decision = decision.Reasoning
		o.deps.Logger.Action(string(decision.ActionType), targetLabel(decision), decision.Reasoning)

		plan, err := o.deps.Translator.Translate(decision, catalog, tree)
		if err != nil {
			roundLog.Error = err.Error()
			report.Logs = append(report.Logs, roundLog)
			return fail(report, start, err.Error())
		}
		roundLog.Action = plan.ScriptLine
		scriptLines = append(scriptLines, plan.ScriptLine)
		o.deps.Logger.Script(plan.ScriptLine)

		execErr := o.deps.Interpreter.Execute(ctx, plan.Step)
		roundLog.Success = execErr == nil
		if execErr != nil {
			roundLog.Error = execErr.Error()
			o.deps.Logger.ActionComplete(false, execErr.Error(), 0)
			report.Logs = append(report.Logs, roundLog)
			if ctx.Err() != nil {
				return interrupted(report, start)
			}
			return fail(report, start, execErr.Error())
		}
		o.deps.Logger.ActionComplete(true, plan.ScriptLine, 0)

		history = append(history, fmt.Sprintf("[round %d] %s", round, decision.Reasoning))
		report.Logs = append(report.Logs, roundLog)

		if decision.TestCompleted {
			verdict, err := o.deps.Reviewer.Review(ctx, instruction, catalog.Description, tailHistory(history, 5), decision.Reasoning)
			if err != nil {
				return fail(report, start, err.Error())
			}
			o.deps.Logger.Review(string(verdict.Kind), verdict.Feedback)
			switch verdict.Kind {
			case types.VerdictPassedNormal:
				return o.terminate(report, start, in, scriptLines, StatusCompleted, ResultPassed, "")
			case types.VerdictFailedWithBug:
				return o.terminate(report, start, in, scriptLines, StatusCompleted, ResultFailedBug, verdict.BugDescription)
			case types.VerdictIncomplete:
				// continue the loop
			}
		}
	}

	return o.terminate(report, start, in, scriptLines, StatusCompleted, ResultIncomplete, "")
}

// perceive captures the screen, runs OCR and tree-parse concurrently,
// then fuses the results — the mandatory capture → OCR & tree parse →
// fuse ordering within a round.
func (o *Orchestrator) perceive(ctx context.Context, workarea string) (*fuser.ScreenStateWithCatalog, []types.UIElement, error) {
	screenshotPath, treeXMLPath, err := o.deps.Device.Capture(ctx, workarea)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: capture: %w", err)
	}

	var wg sync.WaitGroup
	var ocrTexts []types.OcrText
	var ocrErr error
	var tree []types.UIElement
	var treeErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		imgBytes, err := os.ReadFile(screenshotPath)
		if err != nil {
			ocrErr = fmt.Errorf("orchestrator: read screenshot: %w", err)
			return
		}
		ocrTexts, ocrErr = o.deps.OCR.Recognize(ctx, imgBytes, o.deps.OCRMode, o.deps.OCRParam)
	}()
	go func() {
		defer wg.Done()
		xmlBytes, err := os.ReadFile(treeXMLPath)
		if err != nil {
			treeErr = fmt.Errorf("orchestrator: read tree: %w", err)
			return
		}
		tree, treeErr = fetcher.Parse(xmlBytes)
	}()
	wg.Wait()

	if ocrErr != nil {
		return nil, nil, ocrErr
	}
	if treeErr != nil {
		return nil, nil, treeErr
	}

	catalog, err := fuser.Fuse(ocrTexts, tree, screenshotPath, treeXMLPath)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: fuse: %w", err)
	}
	return catalog, tree, nil
}

func (o *Orchestrator) terminate(report *Report, start time.Time, in Input, scriptLines []string, status Status, result Result, errMsg string) *Report {
	path, err := o.persistScript(in, scriptLines)
	if err != nil {
		log.Warn().Err(err).Msg("orchestrator: failed to persist script")
	}
	report.ScriptPath = path
	report.Status = status
	report.Result = result
	report.Error = errMsg
	report.Success = result == ResultPassed
	report.TotalRounds = len(report.Logs)
	report.EndTime = time.Now()
	o.deps.Logger.Done(string(status), string(result), report.TotalRounds)
	return report
}

func (o *Orchestrator) persistScript(in Input, lines []string) (string, error) {
	if len(lines) == 0 {
		return "", nil
	}
	dir := in.ScriptOutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := in.TestCaseID
	if name == "" {
		name = "run"
	}
	path := filepath.Join(dir, name+".tks")

	content := fmt.Sprintf("# %s — generated %s\n步骤:\n", in.TestCaseName, time.Now().Format(time.RFC3339))
	for _, line := range lines {
		content += line + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func fail(report *Report, start time.Time, errMsg string) *Report {
	report.Status = StatusFailed
	report.Result = ResultError
	report.Error = errMsg
	report.Success = false
	report.TotalRounds = len(report.Logs)
	report.EndTime = time.Now()
	return report
}

func interrupted(report *Report, start time.Time) *Report {
	report.Status = StatusInterrupted
	report.Result = ResultIncomplete
	report.Success = false
	report.TotalRounds = len(report.Logs)
	report.EndTime = time.Now()
	return report
}

func tailHistory(history []string, minTail int) []string {
	if len(history) <= minTail {
		return history
	}
	return history[len(history)-minTail:]
}

func targetLabel(d types.ActionDecision) string {
	if d.TargetElementID != nil {
		return fmt.Sprintf("#%d", *d.TargetElementID)
	}
	return ""
}
