package imagegen

import "testing"

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name   string
		reply  string
		kind   VerdictKind
		prompt string
	}{
		{name: "ok", reply: "ok", kind: VerdictApproved},
		{name: "ok_padded_upper", reply: "  OK\n", kind: VerdictApproved},
		{name: "ok_fullwidth", reply: "ｏｋ", kind: VerdictApproved},
		{name: "ok_with_period", reply: "ok.", kind: VerdictRevise},
		{name: "ok_in_sentence", reply: "looks ok to me", kind: VerdictRevise},
		{name: "critique", reply: "Please add the colour change.", kind: VerdictRevise},
		{
			name:   "refine",
			reply:  "Refine prompt to: A blue flame experiment, realistic photo, no text",
			kind:   VerdictRefinedPrompt,
			prompt: "A blue flame experiment, realistic photo, no text",
		},
		{
			name:   "refine_lowercase",
			reply:  "refine prompt to: Copper wire in silver nitrate, no labels",
			kind:   VerdictRefinedPrompt,
			prompt: "Copper wire in silver nitrate, no labels",
		},
		{
			name:   "refine_after_preamble",
			reply:  "The flame is yellow.\nRefine prompt to:   Magnesium ribbon with white flame  ",
			kind:   VerdictRefinedPrompt,
			prompt: "Magnesium ribbon with white flame",
		},
		{
			name:   "refine_keeps_fullwidth_and_quotes",
			reply:  "Refine prompt to: \"Copper flame test, ５０ml beaker，green flame\"",
			kind:   VerdictRefinedPrompt,
			prompt: "\"Copper flame test, ５０ml beaker，green flame\"",
		},
		{name: "refine_empty", reply: "Refine prompt to:   ", kind: VerdictRevise},
		{name: "empty", reply: "", kind: VerdictRevise},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseVerdict(tc.reply)
			if got.Kind != tc.kind {
				t.Fatalf("Kind = %s, want %s", got.Kind, tc.kind)
			}
			if got.Prompt != tc.prompt {
				t.Fatalf("Prompt = %q, want %q", got.Prompt, tc.prompt)
			}
		})
	}
}

func TestParseVerdictKeepsCritique(t *testing.T) {
	got := ParseVerdict("  Add the precipitate colour.  ")
	if got.Critique != "Add the precipitate colour." {
		t.Fatalf("Critique = %q", got.Critique)
	}
}

func TestParseVerdictKeepsFullWidthCritique(t *testing.T) {
	got := ParseVerdict("需要显示５０ml烧杯")
	if got.Critique != "需要显示５０ml烧杯" {
		t.Fatalf("Critique = %q, want original text", got.Critique)
	}
}

func TestIndexFoldHandlesMultibytePrefix(t *testing.T) {
	s := "图像不符。REFINE PROMPT TO: x"
	idx := indexFold(s, refineMarker)
	if idx < 0 || s[idx:idx+len(refineMarker)] != "REFINE PROMPT TO:" {
		t.Fatalf("indexFold = %d", idx)
	}
}
