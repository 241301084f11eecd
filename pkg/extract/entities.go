// Package extract provides pattern-based entity extraction and content
// routing. Both are pure functions over text: no model calls, no stored
// state, deterministic for identical input so consolidation can re-run
// extraction idempotently.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// EntityType labels what kind of thing an extracted entity is.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityProject      EntityType = "project"
	EntityTechnology   EntityType = "technology"
	EntityLocation     EntityType = "location"
	EntityEvent        EntityType = "event"
	EntityConcept      EntityType = "concept"
)

// Entity is a named thing found in text. Confidence is heuristic, not
// probabilistic: known-list matches score higher than inferred spans.
type Entity struct {
	Text       string
	Type       EntityType
	Confidence float64
}

// Known entity lists. Matches against these score 0.95 and win over any
// contained shorter span.
var (
	knownTechnologies = []string{
		"TypeScript", "JavaScript", "Python", "Rust", "Go", "Java", "SQL",
		"React", "Vue", "Angular", "Svelte", "Next.js", "Node.js",
		"Express", "FastAPI", "Django", "Rails",
		"Docker", "Kubernetes", "Terraform", "GitHub Actions",
		"PostgreSQL", "Postgres", "MySQL", "MongoDB", "Redis", "SQLite",
		"Ollama", "LangChain", "Git", "Linux", "Ubuntu", "macOS",
	}

	knownLocations = []string{
		"Brisbane", "Sydney", "Melbourne", "Perth", "Adelaide", "Canberra",
		"Queensland", "Australia", "London", "New York", "San Francisco",
		"Tokyo", "Singapore",
	}

	knownEvents = []string{
		"planning session", "product launch", "standup", "retrospective",
		"sprint", "demo", "workshop", "conference", "hackathon",
	}

	knownConcepts = []string{
		"memory system", "semantic search", "knowledge graph",
		"vector embedding", "machine learning", "neural network",
		"natural language processing",
	}
)

// stopwords are capitalized function words and calendar terms that never
// form entities on their own.
var stopwords = map[string]bool{
	"I": true, "The": true, "A": true, "An": true, "This": true,
	"That": true, "It": true, "We": true, "They": true, "You": true,
	"He": true, "She": true, "But": true, "However": true, "When": true,
	"Where": true, "Why": true, "How": true, "What": true, "If": true,
	"Then": true, "Yesterday": true, "Today": true, "Tomorrow": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true, "First": true,
	"Second": true, "Third": true, "Finally": true, "Last": true,
	"Next": true, "After": true, "Before": true,
}

var (
	capitalizedPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	camelCasePattern   = regexp.MustCompile(`\b[A-Z][a-z]{2,}[A-Z][a-z]{2,}(?:[A-Z][a-z]{2,})*\b`)
	dotSuffixPattern   = regexp.MustCompile(`\b[A-Z][a-z]*\.(?:js|ts)\b`)
)

// Context word sets used to infer a type for unknown capitalized spans.
var (
	personContext   = []string{"met", "spoke", "talked", "discussed", "called", "emailed", "said", "told", "asked", "with"}
	orgContext      = []string{"company", "team", "organization", "joined", "works at", "partner"}
	projectContext  = []string{"project", "app", "application", "system", "platform", "built", "deployed"}
	techContext     = []string{"uses", "using", "built with", "framework", "library", "language", "database"}
	locationContext = []string{"based in", "located", "office", "lives in", "from"}
)

// Extract finds named entities in text. Pure and deterministic: identical
// input yields identical output, in order of first occurrence. A longer
// matched span claims any shorter span it contains (longest-match-wins).
func Extract(text string) []Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	found := map[string]bool{}
	var claimedKeys []string
	type positioned struct {
		entity Entity
		pos    int
	}
	var out []positioned
	lower := strings.ToLower(text)

	claim := func(name string, typ EntityType, confidence float64) {
		key := strings.ToLower(name)
		if found[key] {
			return
		}
		pos := strings.Index(lower, key)
		if pos < 0 {
			return
		}
		out = append(out, positioned{Entity{Text: name, Type: typ, Confidence: confidence}, pos})
		found[key] = true
		claimedKeys = append(claimedKeys, key)
		// Multi-word matches also claim their parts so "Sammy" is not
		// re-extracted after "Sammy Clemens".
		for part := range strings.SplitSeq(key, " ") {
			if len(part) > 2 {
				found[part] = true
			}
		}
	}

	// claimedWithin reports whether key is a fragment of an entity already
	// claimed, e.g. "Paper" inside an extracted "PaperCompute".
	claimedWithin := func(key string) bool {
		for _, claimed := range claimedKeys {
			if strings.Contains(claimed, key) {
				return true
			}
		}
		return false
	}

	matchKnown := func(list []string, typ EntityType, confidence float64) {
		sorted := make([]string, len(list))
		copy(sorted, list)
		sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
		for _, name := range sorted {
			if containsWord(lower, strings.ToLower(name)) {
				claim(name, typ, confidence)
			}
		}
	}

	matchKnown(knownTechnologies, EntityTechnology, 0.95)
	matchKnown(knownLocations, EntityLocation, 0.95)
	matchKnown(knownEvents, EntityEvent, 0.85)
	matchKnown(knownConcepts, EntityConcept, 0.8)

	for _, m := range camelCasePattern.FindAllString(text, -1) {
		claim(m, EntityTechnology, 0.7)
	}
	for _, m := range dotSuffixPattern.FindAllString(text, -1) {
		claim(m, EntityTechnology, 0.8)
	}

	// Capitalized spans, longest first so "Sammy Clemens" beats "Sammy".
	caps := capitalizedPattern.FindAllString(text, -1)
	sort.SliceStable(caps, func(i, j int) bool { return len(caps[i]) > len(caps[j]) })
	for _, span := range caps {
		if stopwords[span] || claimedWithin(strings.ToLower(span)) {
			continue
		}
		if typ, ok := inferType(span, lower); ok {
			claim(span, typ, 0.5)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	entities := make([]Entity, len(out))
	for i, p := range out {
		entities[i] = p.entity
	}
	return entities
}

// Normalize produces the canonical form used to key entity rows:
// lowercased, inner whitespace collapsed.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordByte(haystack[start-1])
		afterOK := end == len(haystack) || !isWordByte(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// inferType guesses a type for an unknown capitalized span from surrounding
// context words. Returns false when no signal is strong enough; such spans
// are skipped rather than guessed at.
func inferType(span, lowerText string) (EntityType, bool) {
	idx := strings.Index(lowerText, strings.ToLower(span))
	if idx < 0 {
		return "", false
	}
	start := max(0, idx-50)
	end := min(len(lowerText), idx+len(span)+50)
	window := lowerText[start:end]

	multiWord := strings.Contains(span, " ")
	nameLike := regexp.MustCompile(`^[A-Z][a-z]+$`).MatchString(span)

	for _, c := range personContext {
		if strings.Contains(window, c) && (nameLike || multiWord) {
			return EntityPerson, true
		}
	}
	for _, c := range orgContext {
		if strings.Contains(window, c) {
			return EntityOrganization, true
		}
	}
	for _, c := range projectContext {
		if strings.Contains(window, c) {
			return EntityProject, true
		}
	}
	for _, c := range techContext {
		if strings.Contains(window, c) {
			return EntityTechnology, true
		}
	}
	for _, c := range locationContext {
		if strings.Contains(window, c) {
			return EntityLocation, true
		}
	}

	// A lone capitalized word with no context signal is most often a name.
	if nameLike && len(span) > 2 {
		return EntityPerson, true
	}
	return "", false
}
