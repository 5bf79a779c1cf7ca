// Package admin is a small configuration-driven back office. Each entity is
// described by a ModelAdmin and rendered by a generic changelist and change form.
package admin

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"gorm.io/gorm"
)

// Level classifies a flash message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a flash message shown on the next admin page.
type Message struct {
	Level Level
	Text  string
}

// Lookup is one choice of a filter or select widget.
type Lookup struct {
	Value string
	Label string
}

// ListFilter narrows the changelist by a single query parameter.
type ListFilter interface {
	Title() string
	Parameter() string
	Lookups(ctx context.Context, db *gorm.DB) ([]Lookup, error)
	// Queryset applies value to query. Unknown values must return query unchanged.
	Queryset(query *gorm.DB, value string) *gorm.DB
}

// Column is one changelist column.
type Column[T any] struct {
	Name   string
	Header string
	Render func(ctx context.Context, item *T) templ.Component
	// SortKey is the database column the header sorts by. Empty disables sorting.
	SortKey string
	Link    bool
}

// Editable turns a display column into an inline select on the changelist.
type Editable[T any] struct {
	Column  string
	Field   string
	Choices []Lookup
	Value   func(item *T) string
	Parse   func(raw string) (any, error)
}

// Action is a bulk operation offered in the changelist action menu.
// Run receives the selection already restricted to the current filters and the
// chosen primary keys, bound to an open transaction.
type Action[T any] struct {
	Name        string
	Description string
	Run         func(ctx context.Context, selection *gorm.DB) (Message, error)
}

// Widget selects how a form field is rendered.
type Widget int

const (
	WidgetText Widget = iota
	WidgetTextarea
	WidgetNumber
	WidgetSelect
	WidgetSelectMultiple
	WidgetFile
)

// FormField is one input of the change form.
type FormField struct {
	Name     string
	Label    string
	Widget   Widget
	Value    string
	Values   []string
	Choices  []Lookup
	Required bool
	// Preview renders below the input, e.g. the current photo.
	Preview templ.Component
	Errors  []string

	prepopulateFrom []string
}

// FieldErrors maps field names to validation messages. NonFieldErrors collects
// messages that belong to the whole form.
type FieldErrors map[string][]string

// NonFieldErrors is the FieldErrors key for form-wide messages.
const NonFieldErrors = "__all__"

// Add appends a message for field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Form binds, validates and persists one entity type.
type Form[T any] interface {
	Fields(ctx context.Context, item *T) ([]FormField, error)
	// Bind copies submitted values onto item and returns validation errors.
	// Item keeps the submitted values even when validation fails so the form can
	// be rendered again.
	Bind(ctx context.Context, r *http.Request, item *T) (FieldErrors, error)
	Save(ctx context.Context, tx *gorm.DB, item *T, created bool) error
}

// ModelAdmin configures the back office for entity type T.
type ModelAdmin[T any] struct {
	Name              string
	VerboseName       string
	VerboseNamePlural string

	PK       func(item *T) uint
	PKColumn string
	String   func(item *T) string

	Fields       []string
	Prepopulated map[string][]string
	Form         Form[T]

	ListDisplay  []Column[T]
	ListEditable []Editable[T]
	ListPerPage  int
	Ordering     []string
	SearchFields []SearchField
	ListFilters  []ListFilter
	Actions      []Action[T]
	Preload      []string

	// UpdatedColumn is stamped with the current time by list-editable saves.
	UpdatedColumn string

	OnChange func(ctx context.Context, item *T)
}

// DefaultListPerPage is used when ListPerPage is zero.
const DefaultListPerPage = 100
