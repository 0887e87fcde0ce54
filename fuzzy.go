package datagrid

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// fzf query parser and scorer backing the fuzzy filter preset.
//
// query syntax:
//   "foo"     fuzzy subsequence match
//   "'foo"    exact substring match
//   "^foo"    prefix match
//   "foo$"    suffix match
//   "!foo"    negated term
//   "a b"     all space-separated terms must match
//   "a | b"   at least one pipe-separated group must match
//
// a term containing an upper-case letter matches case-sensitively.

func init() {
	algo.Init("default")
}

var fuzzySlab = util.MakeSlab(100*1024, 2048)

// FuzzyQuery is a parsed query. Parse once, score many rows.
type FuzzyQuery struct {
	groups [][]fuzzyTerm
}

type fuzzyTermKind uint8

const (
	termFuzzy fuzzyTermKind = iota
	termExact
	termPrefix
	termSuffix
)

type fuzzyTerm struct {
	runes         []rune
	kind          fuzzyTermKind
	negated       bool
	caseSensitive bool
}

// ParseFuzzyQuery parses raw. A blank query matches everything.
func ParseFuzzyQuery(raw string) FuzzyQuery {
	var q FuzzyQuery
	for _, part := range strings.Split(strings.TrimSpace(raw), " | ") {
		var terms []fuzzyTerm
		for _, tok := range strings.Fields(part) {
			terms = append(terms, parseFuzzyTerm(tok))
		}
		if len(terms) > 0 {
			q.groups = append(q.groups, terms)
		}
	}
	return q
}

func parseFuzzyTerm(tok string) fuzzyTerm {
	t := fuzzyTerm{kind: termFuzzy}
	if len(tok) > 1 && tok[0] == '!' {
		t.negated = true
		tok = tok[1:]
	}
	switch {
	case len(tok) > 1 && tok[0] == '\'':
		t.kind, tok = termExact, tok[1:]
	case len(tok) > 1 && tok[0] == '^':
		t.kind, tok = termPrefix, tok[1:]
	case len(tok) > 1 && tok[len(tok)-1] == '$':
		t.kind, tok = termSuffix, tok[:len(tok)-1]
	}
	t.caseSensitive = hasUpper(tok)
	if !t.caseSensitive {
		tok = strings.ToLower(tok)
	}
	t.runes = []rune(tok)
	return t
}

func hasUpper(s string) bool {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsUpper(r) {
			return true
		}
		i += size
	}
	return false
}

// Empty reports whether the query has no terms.
func (q FuzzyQuery) Empty() bool { return len(q.groups) == 0 }

// Score matches candidate against the query; higher is better. The best
// scoring group wins.
func (q FuzzyQuery) Score(candidate string) (int, bool) {
	if q.Empty() {
		return 0, true
	}
	chars := util.ToChars([]byte(candidate))
	best, matched := -1, false
	for _, terms := range q.groups {
		total, ok := 0, true
		for i := range terms {
			s, hit := terms[i].score(&chars)
			if !hit {
				ok = false
				break
			}
			total += s
		}
		if ok && total > best {
			best, matched = total, true
		}
	}
	return best, matched
}

func (t *fuzzyTerm) score(chars *util.Chars) (int, bool) {
	var fn func(bool, bool, bool, *util.Chars, []rune, bool, *util.Slab) (algo.Result, *[]int)
	switch t.kind {
	case termExact:
		fn = algo.ExactMatchNaive
	case termPrefix:
		fn = algo.PrefixMatch
	case termSuffix:
		fn = algo.SuffixMatch
	default:
		fn = algo.FuzzyMatchV2
	}
	res, _ := fn(t.caseSensitive, false, true, chars, t.runes, false, fuzzySlab)
	hit := res.Start >= 0
	if t.negated {
		return 0, !hit
	}
	if !hit {
		return 0, false
	}
	return res.Score, true
}

// FuzzyFilter returns a FilterMethod that treats each filter value as a
// query and matches it against the row's properties joined by spaces. With
// no properties the filter never matches. Parsed queries are cached per
// query string.
func FuzzyFilter(properties ...string) func(value any, row Row) bool {
	cache := make(map[string]FuzzyQuery)
	return func(value any, row Row) bool {
		raw := fmt.Sprint(value)
		q, ok := cache[raw]
		if !ok {
			q = ParseFuzzyQuery(raw)
			cache[raw] = q
		}
		if q.Empty() {
			return true
		}
		var b strings.Builder
		found := false
		for i, p := range properties {
			v, ok := Value(row, p)
			if !ok || v == nil {
				continue
			}
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprint(&b, v)
			found = true
		}
		if !found {
			return false
		}
		_, hit := q.Score(b.String())
		return hit
	}
}
