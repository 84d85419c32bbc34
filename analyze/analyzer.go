// Package analyze derives lightweight structural metadata from a payload.
//
// Analysis is a pure, synchronous computation with no I/O. The resulting
// Report is used both for tagging persisted records and for pre-write
// validation heuristics.
package analyze

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/seam-io/seam/types"
)

// SubstantialChars is the threshold above which content is considered
// substantial enough to tag as a full capture rather than a note.
const SubstantialChars = 500

var (
	// Speaker-label markers at the start of a line, optionally bolded.
	turnPattern = regexp.MustCompile(`(?m)^(?:\*\*)?(?:Human|Assistant|User|System|AI)(?:\*\*)?\s*:`)

	urlPattern = regexp.MustCompile(`https?://[^\s)>"'\]]+`)

	// Path-like tokens: at least one directory separator plus an extension.
	filePathPattern = regexp.MustCompile(`(?:[A-Za-z0-9_.~-]+/)+[A-Za-z0-9_.-]+\.[A-Za-z0-9]{1,8}`)
)

// Report holds the structural metadata derived from one payload.
type Report struct {
	CharCount      int `json:"char_count"`
	WordCount      int `json:"word_count"`
	CodeBlockCount int `json:"code_block_count"`
	TurnCount      int `json:"turn_count"`
	URLCount       int `json:"url_count"`
	FilePathCount  int `json:"file_path_count"`

	HasCode        bool `json:"has_code"`
	HasLinks       bool `json:"has_links"`
	IsConversation bool `json:"is_conversation"`
	IsSubstantial  bool `json:"is_substantial"`
}

// Analyze inspects content and returns its structural metadata.
func Analyze(content string) Report {
	r := Report{
		CharCount:      len(content),
		WordCount:      len(strings.Fields(content)),
		CodeBlockCount: countCodeBlocks(content),
		TurnCount:      len(turnPattern.FindAllStringIndex(content, -1)),
		URLCount:       len(urlPattern.FindAllStringIndex(content, -1)),
		FilePathCount:  len(filePathPattern.FindAllStringIndex(content, -1)),
	}
	r.HasCode = r.CodeBlockCount > 0
	r.HasLinks = r.URLCount > 0
	r.IsConversation = r.TurnCount >= 2
	r.IsSubstantial = r.CharCount >= SubstantialChars
	return r
}

// InferKind maps a report to the content kind used for record tagging.
func InferKind(r Report) types.ContentKind {
	switch {
	case r.IsConversation && r.HasCode:
		return types.KindMixed
	case r.IsConversation:
		return types.KindConversation
	case r.HasCode:
		return types.KindCode
	default:
		return types.KindArtifact
	}
}

// Tags derives record tags from a report.
func Tags(r Report) []string {
	var tags []string
	if r.IsConversation {
		tags = append(tags, "conversation")
	}
	if r.HasCode {
		tags = append(tags, "has-code")
	}
	if r.HasLinks {
		tags = append(tags, "has-links")
	}
	if r.FilePathCount > 0 {
		tags = append(tags, "has-paths")
	}
	return tags
}

// countCodeBlocks walks the markdown AST and counts fenced code regions.
// Indented code blocks also count; inline code spans do not.
func countCodeBlocks(content string) int {
	parser := goldmark.New().Parser()
	root := parser.Parse(text.NewReader([]byte(content)))

	count := 0
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			count++
		}
		return ast.WalkContinue, nil
	})
	return count
}
