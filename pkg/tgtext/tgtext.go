// Package tgtext holds plain-text helpers for Telegram message limits.
package tgtext

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is Telegram's per-message text limit in characters.
const MaxMessageLen = 4096

// TruncRunes returns s truncated to at most n runes, with an ellipsis when
// truncated.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	cut := 0
	for i, r := range s {
		count++
		if count == n {
			cut = i + utf8.RuneLen(r)
			continue
		}
		if count > n {
			if cut <= 0 {
				cut = i
			}
			return s[:cut] + "…"
		}
	}
	return s
}

// Split breaks text into chunks of at most limit runes, preferring newline
// boundaries so schedule blocks stay intact. A single line longer than the
// limit is hard-cut.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLen
	}
	text = strings.TrimRight(text, "\n")
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		out    []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, ln := range strings.Split(text, "\n") {
		r := []rune(ln)
		for len(r) > limit {
			flush()
			out = append(out, string(r[:limit]))
			r = r[limit:]
		}
		// +1 for the joining newline.
		if curLen > 0 && curLen+1+len(r) > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(string(r))
		curLen += len(r)
	}
	flush()
	return out
}
