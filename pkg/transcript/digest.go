package transcript

import (
	"encoding/hex"
	"strconv"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// DefaultPreviewBytes is how much of a body Preview shows.
const DefaultPreviewBytes = 64

// Digest returns the hex BLAKE3-256 of body, truncated to 16 hex characters
// for log lines.
func Digest(body []byte) string {
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:8])
}

// Preview returns about limit bytes of body as a quoted string. The cut
// backs off to a rune boundary, or keeps the whole first rune when it is
// longer than limit. Bodies that are not valid UTF-8 are quoted
// byte by byte.
func Preview(body []byte, limit int) string {
	if limit <= 0 {
		limit = DefaultPreviewBytes
	}
	suffix := ""
	if len(body) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRune(body)
		}
		body = body[:cut]
		suffix = "..."
	}
	if utf8.Valid(body) {
		return strconv.Quote(string(body)) + suffix
	}
	return strconv.QuoteToASCII(string(body)) + suffix
}
