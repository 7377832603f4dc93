// Package types holds the data model shared by every subsystem: the
// accessibility-tree element shape, the OCR shape, the fused catalog,
// locator descriptors, action decisions, script steps and round logs.
package types

import "time"

// Bounds is an integer rectangle. An empty Bounds (IsEmpty true) means
// the owning element is skipped from fusion.
type Bounds struct {
	X1, Y1, X2, Y2 int
}

// Center returns the integer midpoint of the rectangle.
func (b Bounds) Center() (int, int) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// IsEmpty reports whether the rectangle has zero or negative area.
func (b Bounds) IsEmpty() bool {
	return b.X1 >= b.X2 || b.Y1 >= b.Y2
}

// Area returns the rectangle's area, used to rank z-index.
func (b Bounds) Area() int {
	if b.IsEmpty() {
		return 0
	}
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// UIElement is one node kept from a depth-first accessibility-tree
// traversal.
type UIElement struct {
	Index         int    `json:"index"`
	ClassName     string `json:"class_name"`
	Bounds        Bounds `json:"bounds"`
	Text          string `json:"text,omitempty"`
	ContentDesc   string `json:"content_desc,omitempty"`
	ResourceID    string `json:"resource_id,omitempty"`
	Hint          string `json:"hint,omitempty"`
	Clickable     bool   `json:"clickable"`
	Checkable     bool   `json:"checkable"`
	Checked       bool   `json:"checked"`
	Focusable     bool   `json:"focusable"`
	Focused       bool   `json:"focused"`
	Scrollable    bool   `json:"scrollable"`
	Selected      bool   `json:"selected"`
	Enabled       bool   `json:"enabled"`
	ParentIndex   *int   `json:"parent_index,omitempty"`
	Depth         int    `json:"depth"`
	SiblingIndex  int    `json:"sibling_index"`
	XPath         string `json:"xpath"`
	ZIndex        int    `json:"z_index"`
}

// Visible reports whether the element's bounds are non-empty.
func (e UIElement) Visible() bool {
	return !e.Bounds.IsEmpty()
}

// Point2D is a single 2-D coordinate, used for OCR quadrilateral corners.
type Point2D struct {
	X, Y float32
}

// OcrText is one recognized text region.
type OcrText struct {
	Text       string     `json:"text"`
	Quad       [4]Point2D `json:"quad"`
	Confidence float32    `json:"confidence"`
}

// Center returns the mean of the four quadrilateral corners.
func (o OcrText) Center() (float32, float32) {
	var sx, sy float32
	for _, p := range o.Quad {
		sx += p.X
		sy += p.Y
	}
	return sx / 4, sy / 4
}

// ElementKind tags the origin of a MergedElement.
type ElementKind string

const (
	KindTree ElementKind = "tree"
	KindOCR  ElementKind = "ocr"
)

// MergedElement is one entry in a round's numbered catalog. Its Id is
// stable only within the snapshot that produced it.
type MergedElement struct {
	ID            int         `json:"id"`
	ElementType   ElementKind `json:"element_type"`
	Description   string      `json:"description"`
	OriginalIndex int         `json:"original_index"`
}

// ScreenState is the perception output for one round.
type ScreenState struct {
	OcrTexts       []OcrText       `json:"ocr_texts"`
	UIElements     []UIElement     `json:"ui_elements"`
	MergedElements []MergedElement `json:"merged_elements"`
	ScreenshotPath string          `json:"screenshot_path"`
	TreeXMLPath    string          `json:"tree_xml_path"`
}

// MatchStrategy names a single locator attribute used for strict,
// single-field resolution.
type MatchStrategy string

const (
	StrategyResourceID   MatchStrategy = "resourceId"
	StrategyText         MatchStrategy = "text"
	StrategyClassName    MatchStrategy = "className"
	StrategyXPath        MatchStrategy = "xpath"
	StrategyBounds       MatchStrategy = "bounds"
	StrategyContentDesc  MatchStrategy = "contentDesc"
)

// DescriptorTag discriminates an ElementDescriptor's shape.
type DescriptorTag string

const (
	TagTree  DescriptorTag = "tree"
	TagOCR   DescriptorTag = "ocr"
	TagImage DescriptorTag = "image"
)

// ElementDescriptor is a persisted, named locator.
type ElementDescriptor struct {
	Type DescriptorTag `json:"type"`

	// tree fields
	ClassName  *string        `json:"class_name,omitempty"`
	Text       *string        `json:"text,omitempty"`
	ResourceID *string        `json:"resource_id,omitempty"`
	Bounds     *Bounds        `json:"bounds,omitempty"`
	Clickable  *bool          `json:"clickable,omitempty"`
	Focusable  *bool          `json:"focusable,omitempty"`
	Scrollable *bool          `json:"scrollable,omitempty"`
	Enabled    *bool          `json:"enabled,omitempty"`
	XPath      *string        `json:"xpath,omitempty"`
	CenterX    *int           `json:"center_x,omitempty"`
	CenterY    *int           `json:"center_y,omitempty"`
	Width      *int           `json:"width,omitempty"`
	Height     *int           `json:"height,omitempty"`
	Strategy   *MatchStrategy `json:"match_strategy,omitempty"`

	// image field
	ImagePath *string `json:"image_path,omitempty"`
}

// ActionType enumerates the decisions an Actor may emit.
type ActionType string

const (
	ActionClick            ActionType = "click"
	ActionPress            ActionType = "press"
	ActionSwipe            ActionType = "swipe"
	ActionDrag             ActionType = "drag"
	ActionDirectionalDrag  ActionType = "directional_drag"
	ActionInput            ActionType = "input"
	ActionClear            ActionType = "clear"
	ActionHideKeyboard     ActionType = "hide_keyboard"
	ActionWait             ActionType = "wait"
	ActionBack             ActionType = "back"
	ActionLaunch           ActionType = "launch"
	ActionStop             ActionType = "stop"
	ActionAssert           ActionType = "assert"
	ActionReadText         ActionType = "read_text"
	ActionNone             ActionType = "none"
)

// Direction is a swipe/drag compass direction.
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// AssertCondition is the expected existence/visibility condition of an assert step.
type AssertCondition string

const (
	AssertExists     AssertCondition = "exists"
	AssertNotExists  AssertCondition = "not_exists"
	AssertVisible    AssertCondition = "visible"
	AssertNotVisible AssertCondition = "not_visible"
)

// ActionParams carries the optional, per-action-type parameters of an ActionDecision.
type ActionParams struct {
	Text            string          `json:"text,omitempty"`
	DurationMs      int             `json:"duration_ms,omitempty"`
	ToX             int             `json:"to_x,omitempty"`
	ToY             int             `json:"to_y,omitempty"`
	HasTo           bool            `json:"has_to,omitempty"`
	Direction       Direction       `json:"direction,omitempty"`
	Distance        int             `json:"distance,omitempty"`
	AssertCondition AssertCondition `json:"assert_condition,omitempty"`
	Package         string          `json:"package,omitempty"`
	Activity        string          `json:"activity,omitempty"`
}

// ActionDecision is the Actor's typed output for one round.
type ActionDecision struct {
	ActionType      ActionType `json:"action_type"`
	TargetElementID *int       `json:"target_element_id,omitempty"`
	Params          ActionParams `json:"params"`
	Reasoning       string     `json:"reasoning"`
	TestCompleted   bool       `json:"test_completed"`
}

// Step is one parsed script line.
type Step struct {
	Command string
	Params  []string
	Raw     string
	Line    int
}

// Script is an ordered sequence of steps plus identifying metadata.
type Script struct {
	CaseID   string
	Name     string
	FilePath string
	Details  map[string]string
	Steps    []Step
}

// RoundLog records one completed round of the orchestration loop.
type RoundLog struct {
	Round       int       `json:"round"`
	Timestamp   time.Time `json:"timestamp"`
	Observation string    `json:"observation"`
	Decision    string    `json:"decision"`
	Action      string    `json:"action"`
	Success     bool      `json:"action_success"`
	Error       string    `json:"error,omitempty"`
}

// VerdictKind tags a ReviewVerdict's variant.
type VerdictKind string

const (
	VerdictIncomplete     VerdictKind = "incomplete"
	VerdictPassedNormal   VerdictKind = "passed_normal"
	VerdictFailedWithBug  VerdictKind = "failed_with_bug"
)

// ReviewVerdict is the Reviewer's terminal judgment for a round.
type ReviewVerdict struct {
	Kind           VerdictKind `json:"kind"`
	Feedback       string      `json:"feedback,omitempty"`
	Summary        string      `json:"summary,omitempty"`
	BugDescription string      `json:"bug_description,omitempty"`
}

// AnalystOutput is the Analyst agent's contract.
type AnalystOutput struct {
	TestObjective     string   `json:"test_objective"`
	SuggestedApproach []string `json:"suggested_approach"`
	KeyPoints         []string `json:"key_points"`
	ExpectedOutcome   string   `json:"expected_outcome"`
}

// RetrieverOutput is the Retriever agent's contract.
type RetrieverOutput struct {
	Items   []string `json:"items"`
	Summary string   `json:"summary"`
}
