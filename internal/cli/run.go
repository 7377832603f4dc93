package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bwan3150/test-toolkit-studio/internal/agent"
	"github.com/bwan3150/test-toolkit-studio/internal/applog"
	"github.com/bwan3150/test-toolkit-studio/internal/interpreter"
	"github.com/bwan3150/test-toolkit-studio/internal/locator"
	"github.com/bwan3150/test-toolkit-studio/internal/ocrsvc"
	"github.com/bwan3150/test-toolkit-studio/internal/orchestrator"
	"github.com/bwan3150/test-toolkit-studio/internal/translator"
)

func newRunCmd() *cobra.Command {
	var inputPath string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a test case end to end and print the report JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getContext(cmd)

			raw, err := readInput(cmd.InOrStdin(), inputPath)
			if err != nil {
				return err
			}
			var in orchestrator.Input
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("cli: decode input: %w", err)
			}
			if in.MaxRounds <= 0 {
				in.MaxRounds = c.settings.MaxRounds
			}
			if in.KnowledgeBaseDir == "" {
				in.KnowledgeBaseDir = c.settings.KnowledgeBaseDir
			}
			if in.ScriptOutputDir == "" {
				in.ScriptOutputDir = c.settings.ScriptOutputDir
			}

			deps, err := buildDeps(cmd.Context(), c, in, quiet)
			if err != nil {
				return err
			}

			report := orchestrator.New(deps).Run(cmd.Context(), in)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("cli: encode report: %w", err)
			}
			if !report.Success {
				return ErrTestFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "path to the test case JSON (defaults to stdin)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the narrated run log")
	return cmd
}

// ErrTestFailed signals a non-zero exit for a completed-but-failed run
// whose report has already been printed on stdout; main distinguishes
// it from a usage or startup error to avoid echoing it to stderr too.
var ErrTestFailed = fmt.Errorf("run: test case did not pass")

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cli: read input %s: %w", path, err)
		}
		return raw, nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("cli: read stdin: %w", err)
	}
	return raw, nil
}

func buildDeps(ctx context.Context, c *cliContext, in orchestrator.Input, quiet bool) (orchestrator.Deps, error) {
	workarea := in.Workarea
	if workarea == "" {
		workarea = filepath.Join(os.TempDir(), "tke-"+in.TestCaseID)
	}
	if err := os.MkdirAll(workarea, 0o755); err != nil {
		return orchestrator.Deps{}, fmt.Errorf("cli: create workarea: %w", err)
	}

	store := locator.NewStore(filepath.Join(workarea, "locators.json"))
	resolver := locator.NewResolver(store, c.settings.ImageMatcherPath)
	ip := interpreter.New(c.device, resolver, workarea)
	tr := translator.New(store)

	apiKey := c.settings.GeminiAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	transport, err := agent.NewTransport(ctx, apiKey, c.settings.GeminiModel)
	if err != nil {
		return orchestrator.Deps{}, fmt.Errorf("cli: configure model transport: %w", err)
	}
	actor, err := agent.NewActor(ctx, agent.ActorConfig{APIKey: apiKey, Model: c.settings.GeminiModel})
	if err != nil {
		return orchestrator.Deps{}, fmt.Errorf("cli: configure actor: %w", err)
	}

	ocrMode := ocrsvc.ModeOnline
	ocrParam := c.settings.OCREndpoint
	if c.settings.OfflineOCRPath != "" && c.settings.OCREndpoint == "" {
		ocrMode = ocrsvc.ModeOffline
		ocrParam = ""
	}

	return orchestrator.Deps{
		Device:      c.device,
		OCR:         ocrsvc.New(c.settings.OfflineOCRPath),
		Store:       store,
		Resolver:    resolver,
		Interpreter: ip,
		Translator:  tr,
		Analyst:     &agent.Analyst{Transport: transport},
		Retriever:   &agent.Retriever{Transport: transport},
		Actor:       actor,
		Reviewer:    &agent.Reviewer{Transport: transport},
		Logger:      applog.NewLogger(!quiet),
		OCRMode:     ocrMode,
		OCRParam:    ocrParam,
	}, nil
}
