// Package pivot implements the slicer-combination pivot simulator: slicer
// name resolution, candidate value extraction, Cartesian combination
// generation, and sequential mask filtering with numeric summaries.
package pivot

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Rule identifies which matching rule resolved a slicer name.
type Rule int

const (
	RuleExact Rule = iota
	RuleEqualFold
	RuleSubstring
)

func (r Rule) String() string {
	switch r {
	case RuleExact:
		return "exact"
	case RuleEqualFold:
		return "case-insensitive"
	default:
		return "substring"
	}
}

// Match reports a resolved column. Alternates lists the other columns that
// matched the same rule, in column order; selection is deterministic by
// column position, so alternates are diagnostic only.
type Match struct {
	Column     string
	Rule       Rule
	Alternates []string
}

// Ambiguous reports whether more than one column matched the winning rule.
func (m Match) Ambiguous() bool { return len(m.Alternates) > 0 }

// Resolve finds the column matching query, trying rules in rank order:
// exact match on the raw name, equality after trimming and case folding,
// then substring containment in either direction. Within a rule the first
// column in table order wins. ok is false when no rule matches; callers
// treat a miss as "zero candidate values" or "skip this filter", never as
// an error.
func Resolve(columns []string, query string) (Match, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Match{}, false
	}
	qFold := strings.ToLower(q)

	rules := []struct {
		rule Rule
		fn   func(col string) bool
	}{
		{RuleExact, func(col string) bool { return col == query }},
		{RuleEqualFold, func(col string) bool {
			return strings.ToLower(strings.TrimSpace(col)) == qFold
		}},
		{RuleSubstring, func(col string) bool {
			c := strings.ToLower(strings.TrimSpace(col))
			if c == "" {
				return false
			}
			return strings.Contains(c, qFold) || strings.Contains(qFold, c)
		}},
	}
	for _, r := range rules {
		var hits []string
		for _, col := range columns {
			if r.fn(col) {
				hits = append(hits, col)
			}
		}
		if len(hits) > 0 {
			return Match{Column: hits[0], Rule: r.rule, Alternates: hits[1:]}, true
		}
	}
	return Match{}, false
}

// Suggest returns up to n column names ranked by edit distance to query,
// closest first, for diagnostics when resolution misses. It never affects
// resolution semantics.
func Suggest(columns []string, query string, n int) []string {
	if n <= 0 || len(columns) == 0 {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	type scored struct {
		name string
		dist int
		pos  int
	}
	ranked := make([]scored, 0, len(columns))
	for i, col := range columns {
		d := fuzzy.LevenshteinDistance(q, strings.ToLower(strings.TrimSpace(col)))
		ranked = append(ranked, scored{name: col, dist: d, pos: i})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].pos < ranked[j].pos
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].name
	}
	return out
}
