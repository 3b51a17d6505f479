package imagegen

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// VerdictKind classifies an evaluator reply.
type VerdictKind int

const (
	VerdictRevise VerdictKind = iota
	VerdictApproved
	VerdictRefinedPrompt
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictApproved:
		return "approved"
	case VerdictRefinedPrompt:
		return "refined_prompt"
	}
	return "revise"
}

// Verdict is the parsed form of an evaluator reply. Prompt is set only for
// VerdictRefinedPrompt; Critique carries the trimmed reply otherwise.
type Verdict struct {
	Kind     VerdictKind
	Prompt   string
	Critique string
}

const refineMarker = "refine prompt to:"

var folder = cases.Fold()

// ParseVerdict classifies a reply. Approval requires the reply to be exactly
// "ok" after trimming, compared case-insensitively and with full-width forms
// narrowed. A reply containing the refine marker followed by non-empty text
// becomes VerdictRefinedPrompt; that text is kept verbatim apart from
// surrounding whitespace. Anything else is VerdictRevise.
func ParseVerdict(reply string) Verdict {
	trimmed := strings.TrimSpace(reply)
	if folder.String(width.Narrow.String(trimmed)) == "ok" {
		return Verdict{Kind: VerdictApproved}
	}
	if idx := indexFold(trimmed, refineMarker); idx >= 0 {
		prompt := strings.TrimSpace(trimmed[idx+len(refineMarker):])
		if prompt != "" {
			return Verdict{Kind: VerdictRefinedPrompt, Prompt: prompt}
		}
	}
	return Verdict{Kind: VerdictRevise, Critique: trimmed}
}

func indexFold(s, substr string) int {
	for i := range s {
		if len(s)-i < len(substr) {
			break
		}
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}
