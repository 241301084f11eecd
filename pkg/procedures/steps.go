// Package procedures turns procedural content into ordered workflow steps
// and evolves stored procedures from success and failure feedback.
package procedures

import (
	"regexp"
	"strings"

	"github.com/papercomputeco/muninn/pkg/memory"
)

var (
	numberedLinePattern = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)
	bulletLinePattern   = regexp.MustCompile(`^\s*[-*]\s+(.+)$`)
	sequencePrefixes    = []string{"first", "second", "third", "then", "next", "after that", "afterwards", "finally", "lastly"}

	// "do A, then do B" carries a sentence boundary in the comma.
	commaSequencePattern = regexp.MustCompile(`(?i),\s+(then|next|finally|after that|afterwards|lastly)\b`)
)

// ExtractSteps parses step descriptions out of free-form procedural
// content. Numbered or bulleted lines win; otherwise sentences led by
// sequencing words are split out. Content with no recognizable structure
// becomes a single step.
func ExtractSteps(content string) []memory.ProcedureStep {
	descriptions := numberedSteps(content)
	if len(descriptions) == 0 {
		descriptions = sequencedSteps(content)
	}
	if len(descriptions) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		descriptions = []string{trimmed}
	}

	steps := make([]memory.ProcedureStep, len(descriptions))
	for i, desc := range descriptions {
		steps[i] = memory.ProcedureStep{Order: i + 1, Description: desc}
	}
	return steps
}

func numberedSteps(content string) []string {
	var out []string
	for line := range strings.SplitSeq(content, "\n") {
		if m := numberedLinePattern.FindStringSubmatch(line); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
			continue
		}
		if m := bulletLinePattern.FindStringSubmatch(line); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	// A single bullet is a note, not a workflow.
	if len(out) < 2 {
		return nil
	}
	return out
}

func sequencedSteps(content string) []string {
	sentences := splitSentences(commaSequencePattern.ReplaceAllString(content, ". $1"))
	var out []string
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, prefix := range sequencePrefixes {
			rest, ok := strings.CutPrefix(lower, prefix)
			if !ok || (rest != "" && rest[0] != ' ' && rest[0] != ',') {
				continue
			}
			out = append(out, strings.TrimSpace(strings.TrimLeft(s[len(prefix):], " ,")))
			break
		}
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

func splitSentences(content string) []string {
	var out []string
	var b strings.Builder
	for _, r := range content {
		switch r {
		case '.', '!', '?', ';', '\n':
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// Title derives a short procedure title from the first step or the leading
// words of the content.
func Title(content string, steps []memory.ProcedureStep) string {
	trimmed := strings.TrimSpace(content)
	for _, line := range splitSentences(trimmed) {
		if len(line) > 1 && strings.Trim(line, "0123456789 ") != "" {
			return truncateWords(line, 8)
		}
	}
	if len(steps) > 0 {
		return truncateWords(steps[0].Description, 8)
	}
	return truncateWords(trimmed, 8)
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}
