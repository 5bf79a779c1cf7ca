package admin

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// ChoicesFilter matches a column against a fixed set of values.
type ChoicesFilter struct {
	title   string
	param   string
	column  string
	choices []Lookup
	parse   func(raw string) (any, error)
}

var _ ListFilter = (*ChoicesFilter)(nil)

// NewChoicesFilter filters column by one of choices. Parse converts the query
// parameter to the column type; nil compares the raw string.
func NewChoicesFilter(title, param, column string, choices []Lookup, parse func(string) (any, error)) *ChoicesFilter {
	return &ChoicesFilter{title: title, param: param, column: column, choices: choices, parse: parse}
}

func (f *ChoicesFilter) Title() string     { return f.title }
func (f *ChoicesFilter) Parameter() string { return f.param }

func (f *ChoicesFilter) Lookups(context.Context, *gorm.DB) ([]Lookup, error) {
	return f.choices, nil
}

func (f *ChoicesFilter) Queryset(query *gorm.DB, value string) *gorm.DB {
	known := false
	for _, choice := range f.choices {
		if choice.Value == value {
			known = true
			break
		}
	}
	if !known {
		return query
	}

	var arg any = value
	if f.parse != nil {
		parsed, err := f.parse(value)
		if err != nil {
			return query
		}
		arg = parsed
	}

	return query.Where(f.column+" = ?", arg)
}

// RelatedFilter matches rows whose foreign key points at a related row with the
// selected column value, e.g. category name.
type RelatedFilter struct {
	title  string
	param  string
	fk     string
	table  string
	column string
}

var _ ListFilter = (*RelatedFilter)(nil)

// NewRelatedFilter filters fk by the rows of table whose column equals the parameter.
func NewRelatedFilter(title, param, fk, table, column string) *RelatedFilter {
	return &RelatedFilter{title: title, param: param, fk: fk, table: table, column: column}
}

func (f *RelatedFilter) Title() string     { return f.title }
func (f *RelatedFilter) Parameter() string { return f.param }

func (f *RelatedFilter) Lookups(ctx context.Context, db *gorm.DB) ([]Lookup, error) {
	var values []string
	err := db.WithContext(ctx).
		Table(f.table).
		Distinct(f.column).
		Order(f.column+" ASC").
		Pluck(f.column, &values).Error
	if err != nil {
		return nil, eris.Wrapf(err, "listing %s.%s filter values", f.table, f.column)
	}

	lookups := make([]Lookup, 0, len(values))
	for _, value := range values {
		lookups = append(lookups, Lookup{Value: value, Label: value})
	}
	return lookups, nil
}

func (f *RelatedFilter) Queryset(query *gorm.DB, value string) *gorm.DB {
	if strings.TrimSpace(value) == "" {
		return query
	}

	related := query.Session(&gorm.Session{NewDB: true}).
		Table(f.table).
		Select("id").
		Where(f.column+" = ?", value)

	return query.Where(f.fk+" IN (?)", related)
}
