package http

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const excerptLength = 200

// plainText drops markup that editors paste into content and keeps the text.
// Script and style bodies are skipped.
func plainText(content string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(content))

	var (
		b    strings.Builder
		skip int
	)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return strings.Join(strings.Fields(b.String()), " ")
			}
			return strings.Join(strings.Fields(content), " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "p", "br", "li", "div":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

// excerpt cuts the plain text of content at a word boundary before limit runes.
func excerpt(content string, limit int) string {
	flat := plainText(content)
	if utf8.RuneCountInString(flat) <= limit {
		return flat
	}

	cut := string([]rune(flat)[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// paragraphs splits content on blank lines, the way editors separate paragraphs
// in the admin textarea.
func paragraphs(content string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
		if text := plainText(block); text != "" {
			out = append(out, text)
		}
	}
	return out
}
