// internal/workers/cart/build-cart/matcher.go
package buildcart

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"commerce-search-workers/internal/models"
)

const (
	scoreExact          = 1.0
	scoreNameContains   = 0.8
	scoreContainsBonus  = 0.2
	scoreQueryContains  = 0.7
	positionBoostWeight = 0.1
)

// normalizeName folds case and width and collapses whitespace.
func normalizeName(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// fuzzyScore rates how well a catalog name matches the requested item, in
// [0, 1]. Rules are tried in order: exact, name contains query, query
// contains name, then token overlap.
func fuzzyScore(query, name string) float64 {
	q := normalizeName(query)
	n := normalizeName(name)
	if q == "" || n == "" {
		return 0
	}

	switch {
	case q == n:
		return scoreExact
	case strings.Contains(n, q):
		ratio := float64(utf8.RuneCountInString(q)) / float64(utf8.RuneCountInString(n))
		return scoreNameContains + ratio*scoreContainsBonus
	case strings.Contains(q, n):
		return scoreQueryContains
	}

	return tokenOverlap(q, n)
}

func tokenOverlap(q, n string) float64 {
	qt := tokenSet(q)
	nt := tokenSet(n)

	shared := 0
	for tok := range qt {
		if nt[tok] {
			shared++
		}
	}

	return float64(shared) / float64(max(len(qt), len(nt)))
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		out[tok] = true
	}
	return out
}

// positionBoost prefers earlier retrieval ranks among equal fuzzy scores.
func positionBoost(rank, total int) float64 {
	if total <= 0 {
		return 1
	}
	return 1 - (float64(rank)/float64(total))*positionBoostWeight
}

type rankedCandidate struct {
	candidate models.Candidate
	score     float64
}

// rankCandidates scores every candidate and orders them best first. Equal
// scores keep retrieval order.
func rankCandidates(query string, candidates []models.Candidate) []rankedCandidate {
	ranked := make([]rankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = rankedCandidate{
			candidate: c,
			score:     fuzzyScore(query, c.Name) * positionBoost(i, len(candidates)),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}
