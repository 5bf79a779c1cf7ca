package admin

import (
	"strings"
	"unicode"
)

// SearchField produces the condition one search term must satisfy on one field.
type SearchField struct {
	Name      string
	condition func(term string) (string, []any)
}

// StartsWith matches a case-insensitive prefix of column.
func StartsWith(column string) SearchField {
	return SearchField{Name: column, condition: func(term string) (string, []any) {
		return "LOWER(" + column + ") LIKE ?", []any{strings.ToLower(term) + "%"}
	}}
}

// Contains matches a case-insensitive substring of column.
func Contains(column string) SearchField {
	return SearchField{Name: column, condition: func(term string) (string, []any) {
		return "LOWER(" + column + ") LIKE ?", []any{"%" + strings.ToLower(term) + "%"}
	}}
}

// RelatedContains matches rows whose fk points at a row of table with column
// containing the term.
func RelatedContains(fk, table, column string) SearchField {
	return SearchField{Name: table + "." + column, condition: func(term string) (string, []any) {
		return fk + " IN (SELECT id FROM " + table + " WHERE LOWER(" + column + ") LIKE ?)",
			[]any{"%" + strings.ToLower(term) + "%"}
	}}
}

// splitTerms splits a search query on whitespace. Double quoted phrases stay together.
func splitTerms(query string) []string {
	var (
		terms   []string
		current strings.Builder
		quoted  bool
	)

	flush := func() {
		if current.Len() > 0 {
			terms = append(terms, current.String())
			current.Reset()
		}
	}

	for _, r := range query {
		switch {
		case r == '"':
			if quoted {
				flush()
			}
			quoted = !quoted
		case unicode.IsSpace(r) && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return terms
}
