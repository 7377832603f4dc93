// Package fuser merges tree-derived UI elements and OCR texts into a
// single, stably numbered catalog presented to the Actor.
package fuser

import (
	"fmt"
	"strings"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// MinOcrConfidence is the inclusion floor for OCR entries in the fused
// catalog.
const MinOcrConfidence = 0.5

// Origin records where a MergedElement's coordinates come from, for
// later resolution of a decision's target_element_id back to a point.
type Origin struct {
	Kind    types.ElementKind
	CenterX int
	CenterY int
	Bounds  *types.Bounds
}

// Result bundles the fused catalog, its lookup table and rendered description.
type Result struct {
	Merged      []types.MergedElement
	Lookup      map[int]Origin
	Description string
}

// Fuse implements the Screen Fuser contract: tree elements that are
// clickable, scrollable or checkable first, then OCR texts above the
// confidence floor, both assigned a monotone id starting at 0.
func Fuse(ocrList []types.OcrText, treeList []types.UIElement, screenshotPath, treeXMLPath string) (*ScreenStateWithCatalog, error) {
	merged := make([]types.MergedElement, 0, len(treeList)+len(ocrList))
	lookup := make(map[int]Origin, len(treeList)+len(ocrList))
	nextID := 0

	for _, e := range treeList {
		if !(e.Clickable || e.Scrollable || e.Checkable) {
			continue
		}
		id := nextID
		nextID++
		merged = append(merged, types.MergedElement{
			ID:            id,
			ElementType:   types.KindTree,
			Description:   describeTreeElement(e),
			OriginalIndex: e.Index,
		})
		cx, cy := e.Bounds.Center()
		b := e.Bounds
		lookup[id] = Origin{Kind: types.KindTree, CenterX: cx, CenterY: cy, Bounds: &b}
	}

	for i, o := range ocrList {
		if o.Confidence < MinOcrConfidence {
			continue
		}
		id := nextID
		nextID++
		merged = append(merged, types.MergedElement{
			ID:            id,
			ElementType:   types.KindOCR,
			Description:   fmt.Sprintf(`文字: "%s"`, o.Text),
			OriginalIndex: i,
		})
		cx, cy := o.Center()
		lookup[id] = Origin{Kind: types.KindOCR, CenterX: int(cx), CenterY: int(cy)}
	}

	state := &types.ScreenState{
		OcrTexts:       ocrList,
		UIElements:     treeList,
		MergedElements: merged,
		ScreenshotPath: screenshotPath,
		TreeXMLPath:    treeXMLPath,
	}

	return &ScreenStateWithCatalog{
		State:       state,
		Lookup:      lookup,
		Description: renderDescription(merged),
	}, nil
}

// ScreenStateWithCatalog bundles the ScreenState with its id-origin
// lookup and rendered description, kept separate from types.ScreenState
// because the lookup is a perception-time convenience, not a persisted
// field of the data model.
type ScreenStateWithCatalog struct {
	State       *types.ScreenState
	Lookup      map[int]Origin
	Description string
}

func describeTreeElement(e types.UIElement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "type: %s", localClass(e.ClassName))
	if e.Text != "" {
		fmt.Fprintf(&b, `, text: "%s"`, e.Text)
	}
	if e.ContentDesc != "" {
		fmt.Fprintf(&b, `, description: "%s"`, e.ContentDesc)
	}
	if tail := ridTail(e.ResourceID); tail != "" {
		fmt.Fprintf(&b, ", id: %s", tail)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, `, hint: "%s"`, e.Hint)
	}
	var attrs []string
	if e.Clickable {
		attrs = append(attrs, "clickable")
	}
	if e.Scrollable {
		attrs = append(attrs, "scrollable")
	}
	if e.Checkable {
		attrs = append(attrs, "checkable")
	}
	if e.Checked {
		attrs = append(attrs, "checked")
	}
	if len(attrs) > 0 {
		fmt.Fprintf(&b, ", attrs: [%s]", strings.Join(attrs, "|"))
	}
	return b.String()
}

func localClass(className string) string {
	if i := strings.LastIndex(className, "."); i >= 0 {
		return className[i+1:]
	}
	return className
}

func ridTail(resourceID string) string {
	if i := strings.LastIndex(resourceID, "/"); i >= 0 {
		return resourceID[i+1:]
	}
	return resourceID
}

func renderDescription(merged []types.MergedElement) string {
	var b strings.Builder
	b.WriteString("Screen elements (reference by [id] when choosing an action):\n")
	for _, m := range merged {
		fmt.Fprintf(&b, "[%d] %s\n", m.ID, m.Description)
	}
	return b.String()
}
