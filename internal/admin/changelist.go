package admin

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Query parameters understood by the changelist.
const (
	SearchParam   = "q"
	OrderingParam = "o"
	PageParam     = "p"
)

// OrderTerm is one ORDER BY entry. Index is the 1-based display column it came
// from, or 0 for default ordering.
type OrderTerm struct {
	Index  int
	Column string
	Desc   bool
}

// ChangeList is one evaluated changelist page.
type ChangeList[T any] struct {
	admin *ModelAdmin[T]

	Params    url.Values
	Query     string
	Terms     []string
	Filters   map[string]string
	Ordering  []OrderTerm
	Page      int
	Paginator Paginator

	Results     []T
	ResultCount int64
	FullCount   int64
}

// ChangeList evaluates the changelist for params against db.
func (ma *ModelAdmin[T]) ChangeList(ctx context.Context, db *gorm.DB, params url.Values) (*ChangeList[T], error) {
	cl := ma.newChangeList(params)
	if err := cl.load(ctx, db); err != nil {
		return nil, err
	}
	return cl, nil
}

func (ma *ModelAdmin[T]) newChangeList(params url.Values) *ChangeList[T] {
	if params == nil {
		params = url.Values{}
	}

	cl := &ChangeList[T]{
		admin:   ma,
		Params:  params,
		Query:   strings.TrimSpace(params.Get(SearchParam)),
		Filters: make(map[string]string),
	}
	cl.Terms = splitTerms(cl.Query)

	for _, filter := range ma.ListFilters {
		if value := params.Get(filter.Parameter()); value != "" {
			cl.Filters[filter.Parameter()] = value
		}
	}

	cl.Ordering = ma.ordering(params.Get(OrderingParam))

	page, err := strconv.Atoi(params.Get(PageParam))
	if err != nil {
		page = 1
	}
	cl.Page = page

	return cl
}

// Filtered returns a fresh query over T with filters and search applied. It is
// called once per statement so conditions never leak between count and find.
func (cl *ChangeList[T]) Filtered(db *gorm.DB) *gorm.DB {
	query := db.Model(new(T))

	for _, filter := range cl.admin.ListFilters {
		if value, ok := cl.Filters[filter.Parameter()]; ok {
			query = filter.Queryset(query, value)
		}
	}

	if len(cl.admin.SearchFields) > 0 {
		for _, term := range cl.Terms {
			conditions := make([]string, 0, len(cl.admin.SearchFields))
			var args []any
			for _, field := range cl.admin.SearchFields {
				condition, fieldArgs := field.condition(term)
				conditions = append(conditions, condition)
				args = append(args, fieldArgs...)
			}
			query = query.Where("("+strings.Join(conditions, " OR ")+")", args...)
		}
	}

	return query
}

func (cl *ChangeList[T]) load(ctx context.Context, db *gorm.DB) error {
	ma := cl.admin
	session := db.WithContext(ctx)

	if err := session.Model(new(T)).Count(&cl.FullCount).Error; err != nil {
		return eris.Wrapf(err, "counting %s", ma.Name)
	}
	if err := cl.Filtered(session).Count(&cl.ResultCount).Error; err != nil {
		return eris.Wrapf(err, "counting filtered %s", ma.Name)
	}

	cl.Paginator = Paginator{Count: cl.ResultCount, PerPage: ma.perPage()}
	cl.Page = cl.Paginator.Clamp(cl.Page)

	query := cl.Filtered(session)
	for _, preload := range ma.Preload {
		query = query.Preload(preload)
	}
	for _, term := range cl.Ordering {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: term.Column}, Desc: term.Desc})
	}

	var results []T
	err := query.
		Offset(cl.Paginator.Offset(cl.Page)).
		Limit(cl.Paginator.PerPage).
		Find(&results).Error
	if err != nil {
		return eris.Wrapf(err, "listing %s", ma.Name)
	}
	cl.Results = results

	return nil
}

// ordering resolves the o parameter ("2.-1": column indexes, 1-based, '-' for
// descending) and falls back to the configured default. The primary key is
// always the final tiebreaker.
func (ma *ModelAdmin[T]) ordering(raw string) []OrderTerm {
	var terms []OrderTerm
	seen := make(map[string]bool)

	for _, part := range strings.Split(raw, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		index, err := strconv.Atoi(strings.TrimPrefix(part, "-"))
		if err != nil || index < 1 || index > len(ma.ListDisplay) {
			continue
		}
		column := ma.ListDisplay[index-1].SortKey
		if column == "" || seen[column] {
			continue
		}
		seen[column] = true
		terms = append(terms, OrderTerm{Index: index, Column: column, Desc: desc})
	}

	if len(terms) == 0 {
		for _, field := range ma.Ordering {
			desc := strings.HasPrefix(field, "-")
			column := strings.TrimPrefix(field, "-")
			if column == "" || seen[column] {
				continue
			}
			seen[column] = true
			terms = append(terms, OrderTerm{Column: column, Desc: desc})
		}
	}

	pk := ma.pkColumn()
	if !seen[pk] {
		terms = append(terms, OrderTerm{Column: pk, Desc: true})
	}

	return terms
}

// sortState reports how display column index (1-based) takes part in ordering.
func (cl *ChangeList[T]) sortState(index int) (priority int, desc bool, sorted bool) {
	for i, term := range cl.Ordering {
		if term.Index == index {
			return i + 1, term.Desc, true
		}
	}
	return 0, false, false
}

// SortURL is the query string that makes column index the primary sort,
// toggling its direction when it already is.
func (cl *ChangeList[T]) SortURL(index int) string {
	_, desc, sorted := cl.sortState(index)
	primary := strconv.Itoa(index)
	if sorted && cl.Ordering[0].Index == index && !desc {
		primary = "-" + primary
	}

	parts := []string{primary}
	for _, term := range cl.Ordering {
		if term.Index == 0 || term.Index == index {
			continue
		}
		part := strconv.Itoa(term.Index)
		if term.Desc {
			part = "-" + part
		}
		parts = append(parts, part)
	}

	return cl.queryString(map[string]string{OrderingParam: strings.Join(parts, ".")}, PageParam)
}

// PageURL is the query string of the given page.
func (cl *ChangeList[T]) PageURL(page int) string {
	return cl.queryString(map[string]string{PageParam: strconv.Itoa(page)})
}

// FilterURL selects value for a filter. An empty value clears the filter.
func (cl *ChangeList[T]) FilterURL(param, value string) string {
	if value == "" {
		return cl.queryString(nil, param, PageParam)
	}
	return cl.queryString(map[string]string{param: value}, PageParam)
}

func (cl *ChangeList[T]) queryString(set map[string]string, remove ...string) string {
	values := url.Values{}
	for key, vals := range cl.Params {
		values[key] = append([]string(nil), vals...)
	}
	for _, key := range remove {
		values.Del(key)
	}
	for key, value := range set {
		values.Set(key, value)
	}

	encoded := values.Encode()
	if encoded == "" {
		return "?"
	}
	return "?" + encoded
}

func (ma *ModelAdmin[T]) perPage() int {
	if ma.ListPerPage <= 0 {
		return DefaultListPerPage
	}
	return ma.ListPerPage
}

func (ma *ModelAdmin[T]) pkColumn() string {
	if ma.PKColumn == "" {
		return "id"
	}
	return ma.PKColumn
}
