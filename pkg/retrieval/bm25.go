// Package retrieval implements sparse (BM25) and hybrid (dense + sparse)
// ranking over an in-memory working set of memories. The sparse index is
// rebuilt on every call: recompute cost is traded for correctness in the
// presence of inserts between calls.
package retrieval

import (
	"math"
	"regexp"
	"strings"

	"github.com/papercomputeco/muninn/pkg/memory"
)

// Default Okapi BM25 parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// BM25 scores documents against a query using the Okapi BM25 ranking
// function. The zero value is not usable; construct with NewBM25.
type BM25 struct {
	k1 float64
	b  float64
}

// NewBM25 creates a scorer with the default k1 and b parameters.
func NewBM25() *BM25 {
	return &BM25{k1: DefaultK1, b: DefaultB}
}

// NewBM25WithParams creates a scorer with explicit parameters. Zero values
// fall back to the defaults.
func NewBM25WithParams(k1, b float64) *BM25 {
	if k1 == 0 {
		k1 = DefaultK1
	}
	if b == 0 {
		b = DefaultB
	}
	return &BM25{k1: k1, b: b}
}

var nonWordPattern = regexp.MustCompile(`\W+`)

// Tokenize lowercases, splits on non-word boundaries, and drops
// single-character tokens.
func Tokenize(text string) []string {
	parts := nonWordPattern.Split(strings.ToLower(text), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if len(p) > 1 {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Score indexes the corpus and returns a BM25 score per memory id. The
// average document length is computed from the given working set.
func (s *BM25) Score(query string, corpus []memory.Memory) map[string]float64 {
	scores := make(map[string]float64, len(corpus))
	if len(corpus) == 0 {
		return scores
	}

	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return scores
	}

	docCount := len(corpus)
	docTerms := make([]map[string]int, docCount)
	docLengths := make([]int, docCount)
	docFreq := make(map[string]int)
	var totalLen int

	for i, m := range corpus {
		terms := Tokenize(m.Content)
		docLengths[i] = len(terms)
		totalLen += len(terms)

		freqs := make(map[string]int, len(terms))
		for _, t := range terms {
			freqs[t]++
		}
		docTerms[i] = freqs
		for t := range freqs {
			docFreq[t]++
		}
	}

	avgDocLen := float64(totalLen) / float64(docCount)
	if avgDocLen == 0 {
		return scores
	}

	idf := make(map[string]float64, len(queryTerms))
	for _, t := range queryTerms {
		df := docFreq[t]
		idf[t] = math.Log((float64(docCount)-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}

	for i, m := range corpus {
		docLen := float64(docLengths[i])
		var score float64
		for _, t := range queryTerms {
			tf := float64(docTerms[i][t])
			if tf == 0 {
				continue
			}
			numerator := tf * (s.k1 + 1)
			denominator := tf + s.k1*(1-s.b+s.b*(docLen/avgDocLen))
			score += idf[t] * (numerator / denominator)
		}
		if score > 0 {
			scores[m.ID] = score
		}
	}

	return scores
}
