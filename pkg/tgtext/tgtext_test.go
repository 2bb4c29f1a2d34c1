package tgtext

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel…"},
		{"привет", 3, "при…"},
		{"x", 0, ""},
	}
	for _, tc := range cases {
		if got := TruncRunes(tc.in, tc.n); got != tc.want {
			t.Fatalf("TruncRunes(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestSplitShortTextUntouched(t *testing.T) {
	got := Split("a\nb\nc", 100)
	if len(got) != 1 || got[0] != "a\nb\nc" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitPrefersLineBoundaries(t *testing.T) {
	text := strings.Repeat("строка из десяти\n", 40)
	chunks := Split(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks")
	}
	for i, c := range chunks {
		if utf8.RuneCountInString(c) > 100 {
			t.Fatalf("chunk %d too long: %d runes", i, utf8.RuneCountInString(c))
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %d has dangling newline: %q", i, c)
		}
	}
	// Nothing lost apart from the boundary newlines.
	if strings.ReplaceAll(strings.Join(chunks, ""), "\n", "") != strings.ReplaceAll(text, "\n", "") {
		t.Fatalf("content lost in split")
	}
}

func TestSplitHardCutsOverlongLine(t *testing.T) {
	text := strings.Repeat("я", 250)
	chunks := Split(text, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Fatalf("content lost in hard cut")
	}
}
