// Package fetcher parses an Android accessibility-tree XML dump into
// the enumerated UIElement sequence the rest of the pipeline consumes.
package fetcher

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// SuppressedResourceIDs lists substrings of resource-id that exclude a
// node from being kept, regardless of its other attributes (status bar,
// navigation bar chrome).
var SuppressedResourceIDs = []string{
	"com.android.systemui:id/status_bar",
	"com.android.systemui:id/navigation_bar",
}

var boundsPattern = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

// ParseError carries the offending token context for a malformed dump.
type ParseError struct {
	Context string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fetcher: parse error near %q: %v", e.Context, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type rawNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []rawNode  `xml:",any"`
}

func attr(n rawNode, name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func parseBounds(s string) types.Bounds {
	m := boundsPattern.FindStringSubmatch(s)
	if m == nil {
		return types.Bounds{}
	}
	x1, e1 := strconv.Atoi(m[1])
	y1, e2 := strconv.Atoi(m[2])
	x2, e3 := strconv.Atoi(m[3])
	y2, e4 := strconv.Atoi(m[4])
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
		return types.Bounds{}
	}
	return types.Bounds{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func isSuppressed(resourceID string) bool {
	if resourceID == "" {
		return false
	}
	for _, s := range SuppressedResourceIDs {
		if strings.Contains(resourceID, s) {
			return true
		}
	}
	return false
}

func isKept(n rawNode) bool {
	bounds := parseBounds(attr(n, "bounds"))
	if bounds.IsEmpty() {
		return false
	}
	if isSuppressed(attr(n, "resource-id")) {
		return false
	}
	clickable := attr(n, "clickable") == "true"
	focusable := attr(n, "focusable") == "true"
	text := attr(n, "text")
	desc := attr(n, "content-desc")
	hint := attr(n, "hint")
	return clickable || focusable || text != "" || desc != "" || hint != ""
}

// Parse runs the depth-first traversal described for the Tree Fetcher:
// keep-filtering, sibling-index/xpath/z-index post-passes.
func Parse(xmlBytes []byte) ([]types.UIElement, error) {
	var root rawNode
	if err := xml.Unmarshal(xmlBytes, &root); err != nil {
		ctx := string(xmlBytes)
		if len(ctx) > 80 {
			ctx = ctx[:80]
		}
		return nil, &ParseError{Context: ctx, Err: err}
	}

	var kept []types.UIElement
	siblingCounts := map[string]int{} // "parentIndex|className" -> count

	var walk func(n rawNode, parentIdx *int, depth int)
	walk = func(n rawNode, parentIdx *int, depth int) {
		myParent := parentIdx
		if isKept(n) {
			idx := len(kept)
			className := attr(n, "class")
			key := fmt.Sprintf("%v|%s", parentIdx, className)
			siblingCounts[key]++

			el := types.UIElement{
				Index:        idx,
				ClassName:    className,
				Bounds:       parseBounds(attr(n, "bounds")),
				Text:         attr(n, "text"),
				ContentDesc:  attr(n, "content-desc"),
				ResourceID:   attr(n, "resource-id"),
				Hint:         attr(n, "hint"),
				Clickable:    attr(n, "clickable") == "true",
				Checkable:    attr(n, "checkable") == "true",
				Checked:      attr(n, "checked") == "true",
				Focusable:    attr(n, "focusable") == "true",
				Focused:      attr(n, "focused") == "true",
				Scrollable:   attr(n, "scrollable") == "true",
				Selected:     attr(n, "selected") == "true",
				Enabled:      attr(n, "enabled") == "true",
				ParentIndex:  parentIdx,
				Depth:        depth,
				SiblingIndex: siblingCounts[key],
			}
			kept = append(kept, el)
			next := idx
			myParent = &next
		}
		for _, c := range n.Children {
			walk(c, myParent, depth+1)
		}
	}
	walk(root, nil, 0)

	assignXPaths(kept)
	assignZIndex(kept)

	return kept, nil
}

func assignXPaths(elements []types.UIElement) {
	for i := range elements {
		e := &elements[i]
		switch {
		case e.ResourceID != "":
			e.XPath = fmt.Sprintf(`//%s[@resource-id="%s"]`, localClass(e.ClassName), e.ResourceID)
		case e.ContentDesc != "":
			e.XPath = fmt.Sprintf(`//%s[@content-desc="%s"]`, localClass(e.ClassName), e.ContentDesc)
		case e.Text != "":
			e.XPath = fmt.Sprintf(`//%s[@text="%s"]`, localClass(e.ClassName), e.Text)
		case e.ParentIndex != nil:
			parent := elements[*e.ParentIndex]
			ident := identifyingAttr(parent)
			if ident != "" {
				e.XPath = fmt.Sprintf(`%s/%s[%d]`, ident, localClass(e.ClassName), e.SiblingIndex)
			} else {
				e.XPath = fmt.Sprintf(`//%s[%d]`, localClass(e.ClassName), e.SiblingIndex)
			}
		default:
			e.XPath = fmt.Sprintf(`//%s[%d]`, localClass(e.ClassName), e.SiblingIndex)
		}
	}
}

func identifyingAttr(e types.UIElement) string {
	switch {
	case e.ResourceID != "":
		return fmt.Sprintf(`//%s[@resource-id="%s"]`, localClass(e.ClassName), e.ResourceID)
	case e.ContentDesc != "":
		return fmt.Sprintf(`//%s[@content-desc="%s"]`, localClass(e.ClassName), e.ContentDesc)
	case e.Text != "":
		return fmt.Sprintf(`//%s[@text="%s"]`, localClass(e.ClassName), e.Text)
	default:
		return ""
	}
}

func localClass(className string) string {
	if i := strings.LastIndex(className, "."); i >= 0 {
		return className[i+1:]
	}
	return className
}

// assignZIndex sorts by bounds area descending and assigns 100, 101, ...
// so the smallest-area element gets the highest z-index.
func assignZIndex(elements []types.UIElement) {
	order := make([]int, len(elements))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return elements[order[i]].Bounds.Area() > elements[order[j]].Bounds.Area()
	})
	for rank, idx := range order {
		elements[idx].ZIndex = 100 + rank
	}
}
