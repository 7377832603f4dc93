package agent

import (
	"context"
	"fmt"

	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/artifact"
	"google.golang.org/adk/memory"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"google.golang.org/genai"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// ActorConfig configures the Actor's ADK transport.
type ActorConfig struct {
	APIKey string
	Model  string
}

// DecideInput is the decide_action tool's argument shape — it mirrors
// types.ActionDecision field-for-field so the model's single tool call
// can be read back directly into the orchestrator's contract type.
type DecideInput struct {
	ActionType      string              `json:"action_type" jsonschema:"One of: click, press, swipe, drag, directional_drag, input, clear, hide_keyboard, wait, back, launch, stop, assert, read_text, none"`
	TargetElementID *int                `json:"target_element_id,omitempty" jsonschema:"Numeric id from the element catalog, when this action targets one"`
	Text            string              `json:"text,omitempty" jsonschema:"Text for input actions"`
	DurationMs      int                 `json:"duration_ms,omitempty" jsonschema:"Duration in milliseconds for press/wait"`
	ToX             int                 `json:"to_x,omitempty" jsonschema:"Drag destination x"`
	ToY             int                 `json:"to_y,omitempty" jsonschema:"Drag destination y"`
	HasTo           bool                `json:"has_to,omitempty" jsonschema:"Set true when to_x/to_y are meaningful"`
	Direction       string              `json:"direction,omitempty" jsonschema:"up, down, left or right for swipe/directional_drag"`
	Distance        int                 `json:"distance,omitempty" jsonschema:"Pixel distance for directional_drag"`
	AssertCondition string              `json:"assert_condition,omitempty" jsonschema:"exists, not_exists, visible or not_visible"`
	Package         string              `json:"package,omitempty" jsonschema:"App package for launch/stop"`
	Activity        string              `json:"activity,omitempty" jsonschema:"Entry activity for launch"`
	Reasoning       string              `json:"reasoning" jsonschema:"Brief explanation of this decision"`
	TestCompleted   bool                `json:"test_completed" jsonschema:"Set true when you believe the objective is achieved or definitively failed"`
}

// DecideOutput acknowledges the decision back to the model.
type DecideOutput struct {
	Accepted bool `json:"accepted"`
}

// HumanTakeoverInput is the Actor's escape hatch — unchanged in shape
// and purpose from the original tool-calling agent's own tool.
type HumanTakeoverInput struct {
	Reason string `json:"reason" jsonschema:"Why human intervention is needed"`
}

type HumanTakeoverOutput struct {
	Accepted bool `json:"accepted"`
}

// Actor wraps an ADK llmagent that must call decide_action exactly
// once per round.
type Actor struct {
	cfg             ActorConfig
	adkAgent        adkagent.Agent
	runner          *runner.Runner
	sessionService  session.Service
	lastDecision    *types.ActionDecision
	humanTakeover   *string
}

// NewActor builds and initializes the Actor's ADK agent.
func NewActor(ctx context.Context, cfg ActorConfig) (*Actor, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	a := &Actor{cfg: cfg}

	model, err := gemini.NewModel(ctx, cfg.Model, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("actor: create model: %w", err)
	}

	decideTool, err := functiontool.New(
		functiontool.Config{
			Name:        "decide_action",
			Description: "Commit to exactly one action for this round.",
		},
		func(_ tool.Context, in DecideInput) (DecideOutput, error) {
			a.lastDecision = &types.ActionDecision{
				ActionType:      types.ActionType(in.ActionType),
				TargetElementID: in.TargetElementID,
				Params: types.ActionParams{
					Text:            in.Text,
					DurationMs:      in.DurationMs,
					ToX:             in.ToX,
					ToY:             in.ToY,
					HasTo:           in.HasTo,
					Direction:       types.Direction(in.Direction),
					Distance:        in.Distance,
					AssertCondition: types.AssertCondition(in.AssertCondition),
					Package:         in.Package,
					Activity:        in.Activity,
				},
				Reasoning:     in.Reasoning,
				TestCompleted: in.TestCompleted,
			}
			return DecideOutput{Accepted: true}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("actor: create decide_action tool: %w", err)
	}

	humanTool, err := functiontool.New(
		functiontool.Config{
			Name:        "request_human_takeover",
			Description: "Request a human take over when the test cannot progress automatically (unexpected dialog, login, ambiguity).",
		},
		func(_ tool.Context, in HumanTakeoverInput) (HumanTakeoverOutput, error) {
			reason := in.Reason
			a.humanTakeover = &reason
			return HumanTakeoverOutput{Accepted: true}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("actor: create request_human_takeover tool: %w", err)
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "mobile_test_actor",
		Model:       model,
		Description: "Decides the next UI action for a mobile test round.",
		Instruction: actorInstruction(),
		Tools:       []tool.Tool{decideTool, humanTool},
		GenerateContentConfig: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.2),
			MaxOutputTokens: 4096,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("actor: create llmagent: %w", err)
	}
	a.adkAgent = adkAgent

	a.sessionService = session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:         "mobile-test-actor",
		Agent:           adkAgent,
		SessionService:  a.sessionService,
		MemoryService:   memory.InMemoryService(),
		ArtifactService: artifact.InMemoryService(),
	})
	if err != nil {
		return nil, fmt.Errorf("actor: create runner: %w", err)
	}
	a.runner = r
	return a, nil
}

// RoundInput bundles one round's perception for the Actor.
type RoundInput struct {
	Instruction       string
	KnowledgeSummary  string
	ScreenDescription string
	Round             int
	History           []string
}

// ErrHumanTakeover is returned when the Actor requests a human
// intervene instead of committing to an action.
type ErrHumanTakeover struct{ Reason string }

func (e *ErrHumanTakeover) Error() string {
	return fmt.Sprintf("actor requested human takeover: %s", e.Reason)
}

// Decide runs one round of the Actor's tool-calling loop and returns
// its committed ActionDecision.
func (a *Actor) Decide(ctx context.Context, in RoundInput) (types.ActionDecision, error) {
	a.lastDecision = nil
	a.humanTakeover = nil

	prompt := fmt.Sprintf(
		"Round %d\n\nObjective:\n%s\n\nKnowledge summary:\n%s\n\nCurrent screen:\n%s\n\nHistory:\n%s",
		in.Round, in.Instruction, in.KnowledgeSummary, in.ScreenDescription, joinHistory(in.History),
	)

	userMessage := &genai.Content{Role: "user", Parts: []*genai.Part{{Text: prompt}}}
	userID := "tke"
	createResp, err := a.sessionService.Create(ctx, &session.CreateRequest{AppName: "mobile-test-actor", UserID: userID})
	if err != nil {
		return types.ActionDecision{}, fmt.Errorf("actor: create session: %w", err)
	}

	for _, err := range a.runner.Run(ctx, userID, createResp.Session.ID(), userMessage, adkagent.RunConfig{}) {
		if err != nil {
			// A decided action or takeover request already arrived — the
			// runner's trailing "empty response" on the final turn is expected.
			if a.lastDecision != nil || a.humanTakeover != nil {
				break
			}
			return types.ActionDecision{}, fmt.Errorf("actor: run: %w", err)
		}
	}

	if a.humanTakeover != nil {
		return types.ActionDecision{}, &ErrHumanTakeover{Reason: *a.humanTakeover}
	}
	if a.lastDecision == nil {
		return types.ActionDecision{}, fmt.Errorf("actor: no decision committed")
	}
	return *a.lastDecision, nil
}

func joinHistory(h []string) string {
	out := ""
	for _, line := range h {
		out += line + "\n"
	}
	return out
}
