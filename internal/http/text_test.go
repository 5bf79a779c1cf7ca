package http

import (
	"strings"
	"testing"
)

func TestPlainTextStripsMarkup(t *testing.T) {
	t.Parallel()

	got := plainText("<p>Anna <b>Karenina</b></p><script>alert(1)</script><p>is a novel.</p>")
	if got != "Anna Karenina is a novel." {
		t.Fatalf("unexpected plain text %q", got)
	}

	if got := plainText("Tom &amp; Jerry"); got != "Tom & Jerry" {
		t.Fatalf("expected entities to be decoded, got %q", got)
	}
}

func TestExcerptCutsAtWordBoundary(t *testing.T) {
	t.Parallel()

	if got := excerpt("short text", 200); got != "short text" {
		t.Fatalf("expected short content unchanged, got %q", got)
	}

	got := excerpt(strings.Repeat("word ", 10), 12)
	if got != "word word…" {
		t.Fatalf("unexpected excerpt %q", got)
	}
}

func TestParagraphsSplitOnBlankLines(t *testing.T) {
	t.Parallel()

	got := paragraphs("First line.\r\n\r\nSecond <i>line</i>.\n\n\n")
	if len(got) != 2 || got[0] != "First line." || got[1] != "Second line." {
		t.Fatalf("unexpected paragraphs %q", got)
	}
}
