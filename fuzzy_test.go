package datagrid

import "testing"

func TestParseFuzzyQuery(t *testing.T) {
	t.Run("simple fuzzy", func(t *testing.T) {
		q := ParseFuzzyQuery("foo")
		if len(q.groups) != 1 || len(q.groups[0]) != 1 {
			t.Fatalf("expected 1 group with 1 term, got %v", q.groups)
		}
		term := q.groups[0][0]
		if term.kind != termFuzzy {
			t.Errorf("expected fuzzy, got %d", term.kind)
		}
		if string(term.runes) != "foo" {
			t.Errorf("expected 'foo', got %q", string(term.runes))
		}
		if term.negated || term.caseSensitive {
			t.Error("plain lowercase term should be neither negated nor case-sensitive")
		}
	})

	t.Run("case sensitive when uppercase", func(t *testing.T) {
		term := ParseFuzzyQuery("Foo").groups[0][0]
		if !term.caseSensitive {
			t.Error("uppercase pattern should be case-sensitive")
		}
		if string(term.runes) != "Foo" {
			t.Errorf("case-sensitive pattern should keep its case, got %q", string(term.runes))
		}
	})

	tests := []struct {
		raw     string
		kind    fuzzyTermKind
		pattern string
		negated bool
	}{
		{"'exact", termExact, "exact", false},
		{"^prefix", termPrefix, "prefix", false},
		{"suffix$", termSuffix, "suffix", false},
		{"!nope", termFuzzy, "nope", true},
		{"!^pre", termPrefix, "pre", true},
		{"'", termFuzzy, "'", false},
	}
	for _, tt := range tests {
		term := ParseFuzzyQuery(tt.raw).groups[0][0]
		if term.kind != tt.kind || string(term.runes) != tt.pattern || term.negated != tt.negated {
			t.Errorf("ParseFuzzyQuery(%q) = {kind %d, %q, negated %v}, want {kind %d, %q, negated %v}",
				tt.raw, term.kind, string(term.runes), term.negated, tt.kind, tt.pattern, tt.negated)
		}
	}

	t.Run("groups", func(t *testing.T) {
		q := ParseFuzzyQuery("a b | c")
		if len(q.groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(q.groups))
		}
		if len(q.groups[0]) != 2 || len(q.groups[1]) != 1 {
			t.Errorf("unexpected group sizes %d, %d", len(q.groups[0]), len(q.groups[1]))
		}
	})

	t.Run("blank", func(t *testing.T) {
		if !ParseFuzzyQuery("   ").Empty() {
			t.Error("blank query should be empty")
		}
	})
}

func TestFuzzyQueryScore(t *testing.T) {
	tests := []struct {
		query     string
		candidate string
		match     bool
	}{
		{"", "anything", true},
		{"fb", "foo bar", true},
		{"bf", "foo bar", false},
		{"'oo b", "foo bar", true},
		{"'ob", "foo bar", false},
		{"^foo", "foo bar", true},
		{"^bar", "foo bar", false},
		{"bar$", "foo bar", true},
		{"foo$", "foo bar", false},
		{"!baz", "foo bar", true},
		{"!bar", "foo bar", false},
		{"foo baz", "foo bar", false},
		{"baz | foo", "foo bar", true},
		{"FOO", "foo bar", false},
		{"FOO", "FOO bar", true},
	}
	for _, tt := range tests {
		_, got := ParseFuzzyQuery(tt.query).Score(tt.candidate)
		if got != tt.match {
			t.Errorf("%q against %q: match = %v, want %v", tt.query, tt.candidate, got, tt.match)
		}
	}

	t.Run("tighter matches score higher", func(t *testing.T) {
		q := ParseFuzzyQuery("abc")
		tight, ok1 := q.Score("abc")
		loose, ok2 := q.Score("a__b__c")
		if !ok1 || !ok2 {
			t.Fatal("both candidates should match")
		}
		if tight <= loose {
			t.Errorf("expected contiguous match to win: %d <= %d", tight, loose)
		}
	})
}

func TestFuzzyFilter(t *testing.T) {
	match := FuzzyFilter("name", "city")
	alice := map[string]any{"name": "Alice", "city": "Lisbon"}
	bob := map[string]any{"name": "Bob"}

	tests := []struct {
		query any
		row   Row
		want  bool
	}{
		{"ali lis", alice, true},
		{"bob", alice, false},
		{"bob", bob, true},
		{"", bob, true},
		{"x", map[string]any{"other": 1}, false},
		{"!lis", bob, true},
	}
	for _, tt := range tests {
		if got := match(tt.query, tt.row); got != tt.want {
			t.Errorf("FuzzyFilter(%v, %v) = %v, want %v", tt.query, tt.row, got, tt.want)
		}
	}

	t.Run("as a column filter", func(t *testing.T) {
		s := NewStore()
		col := s.RegisterColumn(ColumnDecl{Property: "name", FilterMethod: FuzzyFilter("name", "city"), Hidden: true})
		data := rowsOf(alice, bob)
		s.Commit(SetData{Data: &data})
		s.Commit(FilterChange{Column: col, Values: []any{"lisbon"}})
		if got := s.Data(); len(got) != 1 || got[0].(map[string]any)["name"] != "Alice" {
			t.Errorf("expected only Alice, got %v", got)
		}
	})
}
