package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/papercomputeco/muninn/pkg/memory"
)

// RoutingResult carries independent per-type confidence scores, each in
// [0, 1]. The scores are multi-label and deliberately do not sum to one:
// a message can contain both an event and a preference. Reasoning is a
// human-readable summary of which patterns fired.
type RoutingResult struct {
	Episodic   float64  `json:"episodic"`
	Semantic   float64  `json:"semantic"`
	Procedural float64  `json:"procedural"`
	Reasoning  string   `json:"reasoning"`
	Confidence float64  `json:"confidence"`
	Patterns   []string `json:"patterns,omitempty"`
}

// tieEpsilon is the band within which scores are considered tied; ties
// resolve to semantic, the most conservative category.
const tieEpsilon = 0.1

// Type selects the arg-max label. When the top two scores fall within the
// tie band, semantic wins.
func (r RoutingResult) Type() memory.Type {
	top, topScore := memory.Semantic, r.Semantic
	if r.Episodic > topScore {
		top, topScore = memory.Episodic, r.Episodic
	}
	if r.Procedural > topScore {
		top, topScore = memory.Procedural, r.Procedural
	}
	if top != memory.Semantic && topScore-r.Semantic < tieEpsilon {
		return memory.Semantic
	}
	return top
}

// Pattern tables. Grouped by the memory type they indicate; weights reflect
// how strong a signal each pattern is.

var pastTenseVerbs = []string{
	"met", "discussed", "talked", "called", "happened", "occurred",
	"built", "created", "made", "completed", "finished", "started",
	"learned", "discovered", "found", "saw", "heard", "read",
	"decided", "agreed", "resolved", "fixed",
	"deployed", "shipped", "released", "launched", "implemented",
	"received", "sent", "wrote", "said", "asked",
	"went", "came", "left", "arrived", "visited", "attended",
	"caused", "triggered", "broke", "failed",
}

var timeIndicators = []string{
	"yesterday", "today", "last week", "last month", "last night",
	"recently", "this morning", "this afternoon", "this evening",
	"tonight", "ago", "earlier", "previously",
}

var eventIndicators = []string{
	"meeting", "call", "conversation", "discussion", "session",
	"interview", "presentation", "demo", "workshop", "standup",
	"we had", "we discussed", "we talked", "we met",
}

var stepIndicators = []string{
	"first,", "second,", "third,", "then,", "next,", "finally,",
	"step 1", "step 2", "step 3",
	"before you", "after you", "you need to", "you should",
	"make sure to", "ensure that", "remember to",
}

var processKeywords = []string{
	"protocol", "workflow", "process", "procedure", "steps",
	"how to", "guide", "instructions", "tutorial",
	"pipeline", "checklist", "routine",
}

var preferenceIndicators = []string{
	"prefer", "prefers", "like", "likes", "dislike", "dislikes",
	"love", "hate", "want", "needs", "favorite", "favourite", "best",
}

var (
	wePastActionPattern = regexp.MustCompile(`(?i)\bwe\s+(met|discussed|talked|had|decided|agreed|built|created)\b`)
	causationPattern    = regexp.MustCompile(`(?i)\b(caused|led to|resulted in|triggered)\b`)
	incidentPattern     = regexp.MustCompile(`(?i)\b(outage|incident|failure|error|crash|crashed|broke|broken|issue|problem)\b`)

	numberedListPattern = regexp.MustCompile(`\d+[.)]\s+\w+`)
	sequencingPattern   = regexp.MustCompile(`(?i)\b(first|then|next|finally|afterwards?)\b`)
	imperativePattern   = regexp.MustCompile(`(?i)^(run|execute|check|verify|install|configure|setup|create|delete|update|restart|clone|commit|push|pull)\s`)
	conditionalPattern  = regexp.MustCompile(`(?i)\b(when|if)\s+.+,\s*(check|verify|run|execute|use|ensure|make|do)`)
	commandPattern      = regexp.MustCompile(`(?i)\b(run|execute|use|call|type):\s*\S`)

	factVerbPattern    = regexp.MustCompile(`(?i)\b(is|are|was|were)\s+\w+`)
	possessionPattern  = regexp.MustCompile(`\b[A-Z][a-z]+'s\s+\w+`)
	measurementPattern = regexp.MustCompile(`(?i)\d+\s*(port|mb|gb|ms|seconds?|minutes?|hours?)`)
	habitualPattern    = regexp.MustCompile(`(?i)\b(always|never|typically|usually|by default)\b`)
	suggestionPattern  = regexp.MustCompile(`(?i)\b(i think )?we should\b`)
)

// Route classifies content into per-type scores with a rationale. Pure and
// deterministic; no model calls.
func Route(content string) RoutingResult {
	lower := strings.ToLower(content)
	var patterns []string

	episodic := scoreEpisodic(content, lower, &patterns)
	procedural := scoreProcedural(content, lower, &patterns)
	semantic := scoreSemantic(content, lower, &patterns)

	// A suggestion ("we should automate X") reads imperative but is an
	// opinion, not a procedure.
	if suggestionPattern.MatchString(content) {
		procedural *= 0.3
		semantic = clampScore(semantic + 0.3)
		patterns = append(patterns, "suggestion-penalty")
	}

	// Strong episodic signal dampens the fact-verb noise: "we met" also
	// matches "is/was" patterns but the event reading dominates.
	if episodic > 0.3 {
		semantic *= 0.7
		patterns = append(patterns, "episodic-dominant")
	}

	// Nothing fired: default to semantic, the most conservative category.
	if episodic < 0.2 && procedural < 0.2 && semantic < 0.2 {
		semantic = 0.5
		patterns = append(patterns, "default-semantic")
	}

	result := RoutingResult{
		Episodic:   clampScore(episodic),
		Semantic:   clampScore(semantic),
		Procedural: clampScore(procedural),
		Patterns:   patterns,
	}
	result.Confidence = confidence(result)
	result.Reasoning = reasoning(result)
	return result
}

func scoreEpisodic(content, lower string, patterns *[]string) float64 {
	var score float64

	for _, verb := range pastTenseVerbs {
		if containsWord(lower, verb) {
			score += 0.3
			*patterns = append(*patterns, "past-tense:"+verb)
		}
	}
	for _, t := range timeIndicators {
		if strings.Contains(lower, t) {
			score += 0.25
			*patterns = append(*patterns, "time:"+t)
		}
	}
	for _, e := range eventIndicators {
		if strings.Contains(lower, e) {
			score += 0.3
			*patterns = append(*patterns, "event:"+e)
		}
	}
	if wePastActionPattern.MatchString(content) {
		score += 0.4
		*patterns = append(*patterns, "we+past-action")
	}
	if causationPattern.MatchString(content) {
		score += 0.35
		*patterns = append(*patterns, "causation")
	}
	if incidentPattern.MatchString(content) {
		score += 0.3
		*patterns = append(*patterns, "incident")
	}
	return clampScore(score)
}

func scoreProcedural(content, lower string, patterns *[]string) float64 {
	var score float64

	for _, s := range stepIndicators {
		if strings.Contains(lower, s) {
			score += 0.35
			*patterns = append(*patterns, "step:"+s)
		}
	}
	for _, k := range processKeywords {
		if strings.Contains(lower, k) {
			score += 0.3
			*patterns = append(*patterns, "process:"+k)
		}
	}
	if conditionalPattern.MatchString(content) {
		score += 0.4
		*patterns = append(*patterns, "conditional")
	}
	if numberedListPattern.MatchString(content) {
		score += 0.35
		*patterns = append(*patterns, "numbered-list")
	}
	if seq := sequencingPattern.FindAllString(lower, -1); len(seq) >= 2 {
		score += 0.5
		*patterns = append(*patterns, "sequencing-chain")
	}
	if imperativePattern.MatchString(content) {
		score += 0.4
		*patterns = append(*patterns, "imperative")
	}
	if commandPattern.MatchString(content) {
		score += 0.35
		*patterns = append(*patterns, "command")
	}
	return clampScore(score)
}

func scoreSemantic(content, lower string, patterns *[]string) float64 {
	var score float64

	for _, p := range preferenceIndicators {
		if containsWord(lower, p) {
			score += 0.4
			*patterns = append(*patterns, "preference:"+p)
		}
	}
	if habitualPattern.MatchString(content) {
		score += 0.3
		*patterns = append(*patterns, "habitual")
	}
	if possessionPattern.MatchString(content) {
		score += 0.3
		*patterns = append(*patterns, "possession")
	}
	if measurementPattern.MatchString(content) {
		score += 0.25
		*patterns = append(*patterns, "measurement")
	}
	if factVerbPattern.MatchString(content) {
		score += 0.15
		*patterns = append(*patterns, "fact-verb")
	}
	return clampScore(score)
}

func confidence(r RoutingResult) float64 {
	scores := []float64{r.Episodic, r.Semantic, r.Procedural}
	top, second := 0.0, 0.0
	for _, s := range scores {
		if s > top {
			top, second = s, top
		} else if s > second {
			second = s
		}
	}
	if top-second > 0.3 {
		return 0.9
	}
	return 0.6
}

func reasoning(r RoutingResult) string {
	shown := r.Patterns
	if len(shown) > 3 {
		shown = shown[:3]
	}
	if len(shown) == 0 {
		return fmt.Sprintf("classified as %s with no strong signals", r.Type())
	}
	return fmt.Sprintf("classified as %s based on: %s", r.Type(), strings.Join(shown, ", "))
}

func clampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}
