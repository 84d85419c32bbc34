// Package chunk computes split plans for payloads that exceed the maximum
// segment size.
//
// A plan is an ordered list of slices whose concatenation reproduces the
// original payload byte for byte. The planner only chooses where to cut;
// it never drops or alters content.
package chunk

import "strings"

// DefaultMaxChars is the default client-side segment size limit.
const DefaultMaxChars = 20000

// BoundaryWindow is how far back from a hard cut the planner searches for
// a preferred break point.
const BoundaryWindow = 1000

// Boundary markers in priority order. Each marker starts with a newline so
// the cut lands between lines and the marker opens the next slice.
var (
	sectionMarkers = []string{"\n## ", "\n# ", "\n---\n", "\n===\n"}

	turnMarkers = []string{
		"\nHuman:", "\nAssistant:", "\nUser:", "\nSystem:", "\nAI:",
		"\n**Human**", "\n**Assistant**", "\n**User**",
	}

	paragraphMarkers = []string{"\n\n"}
)

// Plan splits content into ordered slices of at most maxChars bytes each.
//
// Content that fits within maxChars is returned as a single-element plan.
// Empty content yields an empty plan; callers must treat that as a
// validation failure upstream, not a valid zero-segment session.
//
// Within the final BoundaryWindow bytes of each window the planner prefers,
// in order: a section delimiter, a conversation-turn marker, a paragraph
// break. When none is present the slice is hard-cut at maxChars exactly.
func Plan(content string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if content == "" {
		return nil
	}
	if len(content) <= maxChars {
		return []string{content}
	}

	var slices []string
	offset := 0
	for offset < len(content) {
		remaining := len(content) - offset
		if remaining <= maxChars {
			slices = append(slices, content[offset:])
			break
		}
		cut := boundaryCut(content, offset, offset+maxChars)
		slices = append(slices, content[offset:cut])
		offset = cut
	}
	return slices
}

// boundaryCut returns the cut position for the window [offset, end).
// The returned position is always in (offset, end], so every slice is
// non-empty and never exceeds the window.
func boundaryCut(content string, offset, end int) int {
	windowStart := end - BoundaryWindow
	if windowStart <= offset {
		windowStart = offset + 1
	}
	window := content[windowStart:end]

	for _, markers := range [][]string{sectionMarkers, turnMarkers, paragraphMarkers} {
		best := -1
		for _, m := range markers {
			if i := strings.LastIndex(window, m); i > best {
				best = i
			}
		}
		if best >= 0 {
			// Cut after the marker's leading newline: the previous slice
			// ends with the line break, the marker text opens the next.
			return windowStart + best + 1
		}
	}
	return end
}
