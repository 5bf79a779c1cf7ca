// Package slug derives URL-safe identifiers from free text.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9_\s-]+`)
	separators   = regexp.MustCompile(`[-\s]+`)
	validSlug    = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// cyrillic covers the Russian alphabet so titles like "Анна Каренина" still produce
// readable slugs.
var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "c",
	'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya",
}

// Make lowercases the input, transliterates Cyrillic, folds diacritics, drops anything
// that is not alphanumeric, underscore or hyphen, and joins words with single hyphens.
func Make(input string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(input) {
		if latin, ok := cyrillic[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), b.String())
	if err != nil {
		folded = b.String()
	}

	cleaned := nonSlugChars.ReplaceAllString(folded, "")
	cleaned = separators.ReplaceAllString(strings.TrimSpace(cleaned), "-")
	return strings.Trim(cleaned, "-_")
}

// Valid reports whether value only contains slug characters.
func Valid(value string) bool {
	return validSlug.MatchString(value)
}
