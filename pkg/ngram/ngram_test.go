package ngram

import (
	"reflect"
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		n          int
		wantSet    []string
		wantTokens []string
	}{
		{
			name:       "sliding windows",
			input:      "select count from users",
			n:          3,
			wantSet:    []string{"count from users", "select count from"},
			wantTokens: []string{"select", "count", "from", "users"},
		},
		{
			name:       "exactly n tokens",
			input:      "a b c",
			n:          3,
			wantSet:    []string{"a b c"},
			wantTokens: []string{"a", "b", "c"},
		},
		{
			name:       "fewer than n tokens",
			input:      "SELECT 1",
			n:          3,
			wantSet:    []string{"SELECT 1"},
			wantTokens: []string{"SELECT", "1"},
		},
		{
			name:       "empty body",
			input:      "",
			n:          3,
			wantSet:    []string{""},
			wantTokens: []string{},
		},
		{
			name:       "whitespace only",
			input:      " \n\t  ",
			n:          3,
			wantSet:    []string{""},
			wantTokens: []string{},
		},
		{
			name:       "whitespace runs collapse",
			input:      "  SELECT\t\t1\n  FROM   t  ",
			n:          3,
			wantSet:    []string{"1 FROM t", "SELECT 1 FROM"},
			wantTokens: []string{"SELECT", "1", "FROM", "t"},
		},
		{
			name:       "duplicates collapse",
			input:      "a b c a b c",
			n:          3,
			wantSet:    []string{"a b c", "b c a", "c a b"},
			wantTokens: []string{"a", "b", "c", "a", "b", "c"},
		},
		{
			name:       "width below one",
			input:      "x y",
			n:          0,
			wantSet:    []string{"x", "y"},
			wantTokens: []string{"x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := Build(tt.input, tt.n)

			if got := fp.Shingles(); !reflect.DeepEqual(got, tt.wantSet) {
				t.Errorf("Shingles() = %q, want %q", got, tt.wantSet)
			}
			if got := fp.Tokens(); !reflect.DeepEqual(got, tt.wantTokens) {
				t.Errorf("Tokens() = %q, want %q", got, tt.wantTokens)
			}
			if fp.Len() != len(tt.wantSet) {
				t.Errorf("Len() = %d, want %d", fp.Len(), len(tt.wantSet))
			}
		})
	}
}

func TestNewUsesDefaultWidth(t *testing.T) {
	fp := New("one two three four")
	if fp.N() != DefaultN {
		t.Fatalf("N() = %d, want %d", fp.N(), DefaultN)
	}
	if !fp.Contains("one two three") || !fp.Contains("two three four") {
		t.Errorf("unexpected shingles %q", fp.Shingles())
	}
}

func TestBuildDeterministic(t *testing.T) {
	inputs := []string{"", "a", "SELECT 1 FROM t", "a b c d e f g a b c", "\x00 weird é input"}
	for _, in := range inputs {
		if a, b := New(in), New(in); !reflect.DeepEqual(a, b) {
			t.Errorf("New(%q) not deterministic", in)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"identical", "SELECT 1 FROM t", "SELECT 1 FROM t", 2},
		{"overlap", "select count from users", "select count from users where id=1", 2},
		{"disjoint", "select name from orders", "select count from users where id=1", 0},
		{"reordered", "SELECT a FROM t", "FROM t SELECT a", 0},
		{"both empty", "", "", 1},
		{"empty against text", "", "a b c", 0},
		{"short bodies equal", "SELECT 1", "SELECT 1", 1},
		{"short bodies differ", "SELECT 1", "SELECT 2", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := New(tt.a), New(tt.b)
			if got := Score(a, b); got != tt.want {
				t.Errorf("Score(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if Score(a, b) != Score(b, a) {
				t.Errorf("Score not commutative for %q / %q", tt.a, tt.b)
			}
			if a.Score(b) != Score(a, b) {
				t.Error("method and function disagree")
			}
		})
	}
}

func TestScoreSelf(t *testing.T) {
	for _, in := range []string{"", "x", "a b c", "a b c d e f", "a b c a b c"} {
		fp := New(in)
		if got := Score(fp, fp); got != fp.Len() {
			t.Errorf("Score(%q, itself) = %d, want %d", in, got, fp.Len())
		}
	}
}

func TestZeroValue(t *testing.T) {
	var zero Fingerprint
	if zero.Len() != 0 {
		t.Errorf("zero Len() = %d", zero.Len())
	}
	if got := Score(zero, New("a b c")); got != 0 {
		t.Errorf("Score(zero, x) = %d, want 0", got)
	}
}

func TestFromParts(t *testing.T) {
	orig := New("select count from users")
	rebuilt := FromParts(orig.N(), orig.Tokens(), orig.Shingles())
	if !reflect.DeepEqual(orig, rebuilt) {
		t.Errorf("FromParts() = %+v, want %+v", rebuilt, orig)
	}

	empty := New("")
	if got := FromParts(empty.N(), nil, empty.Shingles()); !reflect.DeepEqual(got, empty) {
		t.Errorf("FromParts(empty) = %+v, want %+v", got, empty)
	}
}
