// Package ngram builds word-level shingle fingerprints of request bodies and
// scores how much two fingerprints overlap.
//
// # Fingerprints
//
// A body is trimmed, split on runs of whitespace, and every contiguous window
// of N tokens is joined with single spaces. The windows form a set, so a
// phrase repeated many times counts once:
//
//	fp := ngram.New("SELECT count() FROM users WHERE id = 1")
//	fp.Len() // 6 shingles
//
// Bodies with fewer than N tokens produce a single shingle holding every
// token, and an empty body produces the single empty shingle.
//
// # Scoring
//
// The score of two fingerprints is the size of their intersection:
//
//	a := ngram.New("select count from users")
//	b := ngram.New("select count from users where id=1")
//	ngram.Score(a, b) // 2
//
// Score is commutative and Score(a, a) == a.Len().
//
// The proxy always uses DefaultN. Build exists for callers that need a
// different window, such as tests and offline analysis.
package ngram
