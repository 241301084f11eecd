package consolidate

import (
	"sort"
	"strings"

	"github.com/papercomputeco/muninn/pkg/memory"
)

// ResolveTruth reconciles claims that assert different objects for the same
// predicate. The newest claim per predicate wins; when timestamps tie, the
// claim appearing later in the input wins. Losers are annotated with the
// winner's source, the winner lists what it displaced, and both sides stay
// in the returned slice so history is never dropped.
//
// The input is not mutated. Predicates compare case-insensitively with
// whitespace collapsed; objects play no part in grouping, so "favorite
// color: blue" and "favorite color: green" contend for the same slot.
func ResolveTruth(claims []memory.Claim) []memory.Claim {
	out := make([]memory.Claim, len(claims))
	copy(out, claims)

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	// Newest first; later input wins a timestamp tie.
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := out[order[a]], out[order[b]]
		if !ca.Timestamp.Equal(cb.Timestamp) {
			return ca.Timestamp.After(cb.Timestamp)
		}
		return order[a] > order[b]
	})

	winners := make(map[string]int)
	for _, idx := range order {
		key := normalizePredicate(out[idx].Predicate)
		winnerIdx, ok := winners[key]
		if !ok {
			winners[key] = idx
			continue
		}
		out[idx].SupersededBy = out[winnerIdx].Source
		out[winnerIdx].Supersedes = append(out[winnerIdx].Supersedes, out[idx].Source)
	}
	return out
}

// CurrentTruth filters resolved claims down to the winners.
func CurrentTruth(claims []memory.Claim) []memory.Claim {
	resolved := ResolveTruth(claims)
	var winners []memory.Claim
	for _, c := range resolved {
		if c.SupersededBy == "" {
			winners = append(winners, c)
		}
	}
	return winners
}

func normalizePredicate(p string) string {
	return strings.Join(strings.Fields(strings.ToLower(p)), " ")
}
