package ngram

import (
	"sort"
	"strings"
)

// DefaultN is the shingle width used for every request fingerprint.
const DefaultN = 3

// Fingerprint is the shingle set of a request body together with the token
// sequence it was built from. The zero value is an empty fingerprint that
// scores 0 against everything.
type Fingerprint struct {
	n      int
	tokens []string
	set    map[string]struct{}
}

// New builds a fingerprint with the default shingle width.
func New(s string) Fingerprint {
	return Build(s, DefaultN)
}

// Build builds a fingerprint of s using windows of n tokens.
// Values of n below 1 are treated as 1.
func Build(s string, n int) Fingerprint {
	if n < 1 {
		n = 1
	}

	// strings.Fields already ignores leading and trailing whitespace.
	tokens := strings.Fields(s)
	set := make(map[string]struct{})

	if len(tokens) < n {
		set[strings.Join(tokens, " ")] = struct{}{}
	} else {
		for i := 0; i+n <= len(tokens); i++ {
			set[strings.Join(tokens[i:i+n], " ")] = struct{}{}
		}
	}

	return Fingerprint{n: n, tokens: tokens, set: set}
}

// FromParts reassembles a fingerprint from previously extracted tokens and
// shingles. Storage backends use it to rebuild records they persisted.
func FromParts(n int, tokens, shingles []string) Fingerprint {
	set := make(map[string]struct{}, len(shingles))
	for _, s := range shingles {
		set[s] = struct{}{}
	}
	if tokens == nil {
		tokens = []string{}
	}
	return Fingerprint{n: n, tokens: tokens, set: set}
}

// N returns the shingle width.
func (f Fingerprint) N() int {
	return f.n
}

// Len returns the number of distinct shingles.
func (f Fingerprint) Len() int {
	return len(f.set)
}

// Contains reports whether shingle is part of the fingerprint.
func (f Fingerprint) Contains(shingle string) bool {
	_, ok := f.set[shingle]
	return ok
}

// Shingles returns the shingles in sorted order.
func (f Fingerprint) Shingles() []string {
	out := make([]string, 0, len(f.set))
	for s := range f.set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Tokens returns a copy of the source token sequence.
func (f Fingerprint) Tokens() []string {
	out := make([]string, len(f.tokens))
	copy(out, f.tokens)
	return out
}

// Score returns the number of shingles f shares with other.
func (f Fingerprint) Score(other Fingerprint) int {
	return Score(f, other)
}

// Score returns the size of the intersection of the two shingle sets.
func Score(a, b Fingerprint) int {
	small, large := a.set, b.set
	if len(small) > len(large) {
		small, large = large, small
	}

	score := 0
	for s := range small {
		if _, ok := large[s]; ok {
			score++
		}
	}
	return score
}
