package admin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

type layoutData struct {
	SiteTitle string
	PageTitle string
	Username  string
	IndexURL  string
	LogoutURL string
	StaticURL string
	Messages  []Message
	CSRF      templ.Component
}

type loginPage struct {
	Action   string
	Next     string
	Username string
	Error    string
}

type indexPage struct {
	Models []modelEntry
}

type headerView struct {
	Label    string
	URL      string
	Sortable bool
	Sorted   bool
	Desc     bool
	Priority int
}

type selectView struct {
	Name     string
	Choices  []Lookup
	Selected string
}

type cellView struct {
	Content templ.Component
	LinkURL string
	Select  *selectView
}

type rowView struct {
	PK    uint
	Cells []cellView
}

type choiceView struct {
	Label    string
	URL      string
	Selected bool
}

type filterView struct {
	Title   string
	Choices []choiceView
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type changeListPage struct {
	Model         modelEntry
	Query         string
	ResultCount   int64
	FullCount     int64
	Filtered      bool
	SearchEnabled bool
	Editable      bool
	FormAction    string
	HiddenParams  []Lookup
	Headers       []headerView
	Rows          []rowView
	Filters       []filterView
	Actions       []Lookup
	Pages         []pageLink
	Page          int
	NumPages      int
}

type changeFormPage struct {
	Model     modelEntry
	Title     string
	Object    string
	Action    string
	Created   bool
	Multipart bool
	Fields    []FormField
	Errors    []string
}

// writer accumulates the first write error so views read top to bottom.
type writer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (w *writer) raw(parts ...string) {
	for _, part := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.w, part)
	}
}

func (w *writer) text(value string) {
	w.raw(templ.EscapeString(value))
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *writer) component(c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(w.ctx, w.w)
}

func view(fn func(w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := &writer{ctx: ctx, w: out}
		fn(w)
		return w.err
	})
}

func esc(value string) string {
	return templ.EscapeString(value)
}

func layoutView(data layoutData, body templ.Component) templ.Component {
	return view(func(w *writer) {
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<title>`, esc(data.PageTitle), ` | `, esc(data.SiteTitle), `</title>`)
		w.raw(`<link rel="stylesheet" href="`, esc(data.StaticURL), `admin/admin.css">`)
		w.raw(`<script src="`, esc(data.StaticURL), `admin/prepopulate.js" defer></script>`)
		w.raw(`</head><body class="admin">`)

		w.raw(`<header class="admin-header"><a class="brand" href="`, esc(data.IndexURL), `">`, esc(data.SiteTitle), `</a>`)
		if data.Username != "" {
			w.raw(`<form class="logout" method="post" action="`, esc(data.LogoutURL), `">`)
			w.component(data.CSRF)
			w.raw(`<span>Welcome, <strong>`, esc(data.Username), `</strong>.</span> <button type="submit">Log out</button></form>`)
		}
		w.raw(`</header>`)

		if len(data.Messages) > 0 {
			w.raw(`<ul class="messagelist">`)
			for _, message := range data.Messages {
				w.raw(`<li class="`, esc(string(message.Level)), `">`, esc(message.Text), `</li>`)
			}
			w.raw(`</ul>`)
		}

		w.raw(`<main id="content"><h1>`, esc(data.PageTitle), `</h1>`)
		w.component(withCSRF(data.CSRF, body))
		w.raw(`</main></body></html>`)
	})
}

type csrfKey struct{}

// withCSRF makes the CSRF field available to nested forms.
func withCSRF(field, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		return body.Render(context.WithValue(ctx, csrfKey{}, field), out)
	})
}

func csrfField(w *writer) {
	if field, ok := w.ctx.Value(csrfKey{}).(templ.Component); ok {
		w.component(field)
	}
}

func loginView(page loginPage) templ.Component {
	return view(func(w *writer) {
		if page.Error != "" {
			w.raw(`<p class="errornote">`, esc(page.Error), `</p>`)
		}
		w.raw(`<form method="post" action="`, esc(page.Action), `" id="login-form">`)
		csrfField(w)
		w.raw(`<div class="form-row"><label for="id_username">Username:</label>`)
		w.raw(`<input type="text" name="username" id="id_username" autofocus required value="`, esc(page.Username), `"></div>`)
		w.raw(`<div class="form-row"><label for="id_password">Password:</label>`)
		w.raw(`<input type="password" name="password" id="id_password" required></div>`)
		w.raw(`<input type="hidden" name="next" value="`, esc(page.Next), `">`)
		w.raw(`<div class="submit-row"><input type="submit" value="Log in"></div></form>`)
	})
}

func indexView(page indexPage) templ.Component {
	return view(func(w *writer) {
		if len(page.Models) == 0 {
			w.raw(`<p>You don’t have permission to view or edit anything.</p>`)
			return
		}
		w.raw(`<table class="models"><tbody>`)
		for _, model := range page.Models {
			w.raw(`<tr><th scope="row"><a href="`, esc(model.ListURL), `">`, esc(model.VerboseNamePlural), `</a></th>`)
			w.raw(`<td><a class="addlink" href="`, esc(model.AddURL), `">Add</a></td></tr>`)
		}
		w.raw(`</tbody></table>`)
	})
}

func changeListView(page changeListPage) templ.Component {
	return view(func(w *writer) {
		w.raw(`<div class="object-tools"><a class="addlink" href="`, esc(page.Model.AddURL), `">Add `, esc(page.Model.VerboseNamePlural), `</a></div>`)

		w.raw(`<div id="changelist">`)
		if page.SearchEnabled {
			w.raw(`<form id="changelist-search" method="get">`)
			w.raw(`<input type="text" size="40" name="q" id="searchbar" value="`, esc(page.Query), `">`)
			for _, param := range page.HiddenParams {
				w.raw(`<input type="hidden" name="`, esc(param.Label), `" value="`, esc(param.Value), `">`)
			}
			w.raw(`<input type="submit" value="Search">`)
			if page.Filtered {
				w.printf(`<span class="small quiet">%d result%s (<a href="?">%d total</a>)</span>`, page.ResultCount, plural(page.ResultCount), page.FullCount)
			}
			w.raw(`</form>`)
		}

		if len(page.Filters) > 0 {
			w.raw(`<nav id="changelist-filter"><h2>Filter</h2>`)
			for _, filter := range page.Filters {
				w.raw(`<details open><summary>By `, esc(filter.Title), `</summary><ul>`)
				for _, choice := range filter.Choices {
					class := ""
					if choice.Selected {
						class = ` class="selected"`
					}
					w.raw(`<li`, class, `><a href="`, esc(choice.URL), `">`, esc(choice.Label), `</a></li>`)
				}
				w.raw(`</ul></details>`)
			}
			w.raw(`</nav>`)
		}

		w.raw(`<form id="changelist-form" method="post" action="`, esc(page.FormAction), `">`)
		csrfField(w)

		if len(page.Actions) > 0 {
			w.raw(`<div class="actions"><label>Action: <select name="action" required><option value="">---------</option>`)
			for _, action := range page.Actions {
				w.raw(`<option value="`, esc(action.Value), `">`, esc(action.Label), `</option>`)
			}
			w.raw(`</select></label> <button type="submit" class="button" name="index" value="0">Go</button>`)
			w.printf(`<span class="action-counter">0 of %d selected</span>`, len(page.Rows))
			if page.ResultCount > int64(len(page.Rows)) {
				w.printf(`<label class="all"><input type="checkbox" name="select_across" value="1"> Select all %d %s</label>`, page.ResultCount, esc(page.Model.VerboseNamePlural))
			}
			w.raw(`</div>`)
		}

		w.raw(`<table id="result_list"><thead><tr>`)
		if len(page.Actions) > 0 {
			w.raw(`<th scope="col" class="action-checkbox-column"></th>`)
		}
		for _, header := range page.Headers {
			if !header.Sortable {
				w.raw(`<th scope="col">`, esc(header.Label), `</th>`)
				continue
			}
			class := "sortable"
			if header.Sorted {
				class += " sorted"
				if header.Desc {
					class += " descending"
				} else {
					class += " ascending"
				}
			}
			w.raw(`<th scope="col" class="`, class, `"><a href="`, esc(header.URL), `">`, esc(header.Label), `</a>`)
			if header.Sorted {
				w.printf(`<span class="sortpriority">%d</span>`, header.Priority)
			}
			w.raw(`</th>`)
		}
		w.raw(`</tr></thead><tbody>`)

		for _, row := range page.Rows {
			w.raw(`<tr>`)
			if len(page.Actions) > 0 {
				w.printf(`<td class="action-checkbox"><input type="checkbox" name="_selected_action" value="%d" class="action-select"></td>`, row.PK)
			}
			for i, cell := range row.Cells {
				tag := "td"
				if i == 0 {
					tag = "th"
				}
				w.raw(`<`, tag, `>`)
				switch {
				case cell.Select != nil:
					w.raw(`<select name="`, esc(cell.Select.Name), `">`)
					for _, choice := range cell.Select.Choices {
						selected := ""
						if choice.Value == cell.Select.Selected {
							selected = " selected"
						}
						w.raw(`<option value="`, esc(choice.Value), `"`, selected, `>`, esc(choice.Label), `</option>`)
					}
					w.raw(`</select>`)
				case cell.LinkURL != "":
					w.raw(`<a href="`, esc(cell.LinkURL), `">`)
					w.component(cell.Content)
					w.raw(`</a>`)
				default:
					w.component(cell.Content)
				}
				w.raw(`</`, tag, `>`)
			}
			if page.Editable {
				w.printf(`<input type="hidden" name="form-pk" value="%d">`, row.PK)
			}
			w.raw(`</tr>`)
		}
		w.raw(`</tbody></table>`)

		w.raw(`<p class="paginator">`)
		if page.NumPages > 1 {
			for _, link := range page.Pages {
				switch {
				case link.Number == Ellipsis:
					w.raw(`<span>…</span> `)
				case link.Current:
					w.printf(`<span class="this-page">%d</span> `, link.Number)
				default:
					w.raw(`<a href="`, esc(link.URL), `">`)
					w.printf(`%d</a> `, link.Number)
				}
			}
		}
		w.printf(`%d %s`, page.ResultCount, esc(page.Model.VerboseNamePlural))
		if page.Editable {
			w.raw(` <input type="submit" name="_save" class="default" value="Save">`)
		}
		w.raw(`</p></form></div>`)
	})
}

func changeFormView(page changeFormPage) templ.Component {
	return view(func(w *writer) {
		if page.Object != "" {
			w.raw(`<h2>`, esc(page.Object), `</h2>`)
		}

		enctype := ""
		if page.Multipart {
			enctype = ` enctype="multipart/form-data"`
		}
		w.raw(`<form method="post" action="`, esc(page.Action), `"`, enctype, ` id="`, esc(page.Model.Name), `_form" novalidate>`)
		csrfField(w)

		if len(page.Errors) > 0 {
			w.raw(`<ul class="errornote">`)
			for _, message := range page.Errors {
				w.raw(`<li>`, esc(message), `</li>`)
			}
			w.raw(`</ul>`)
		}

		w.raw(`<fieldset class="module aligned">`)
		for _, field := range page.Fields {
			formFieldView(w, field, page.Created)
		}
		w.raw(`</fieldset>`)

		w.raw(`<div class="submit-row"><input type="submit" value="Save" class="default" name="_save">`)
		w.raw(`<input type="submit" value="Save and add another" name="_addanother">`)
		w.raw(`<input type="submit" value="Save and continue editing" name="_continue"></div></form>`)
	})
}

func formFieldView(w *writer, field FormField, created bool) {
	id := "id_" + field.Name
	class := "form-row field-" + field.Name
	if len(field.Errors) > 0 {
		class += " errors"
	}

	w.raw(`<div class="`, esc(class), `">`)
	if len(field.Errors) > 0 {
		w.raw(`<ul class="errorlist">`)
		for _, message := range field.Errors {
			w.raw(`<li>`, esc(message), `</li>`)
		}
		w.raw(`</ul>`)
	}

	label := field.Label
	if label == "" {
		label = field.Name
	}
	labelClass := ""
	if field.Required {
		labelClass = ` class="required"`
	}
	w.raw(`<label for="`, esc(id), `"`, labelClass, `>`, esc(label), `:</label>`)

	attrs := ` name="` + esc(field.Name) + `" id="` + esc(id) + `"`
	if len(field.prepopulateFrom) > 0 && created {
		sources := make([]string, 0, len(field.prepopulateFrom))
		for _, source := range field.prepopulateFrom {
			sources = append(sources, "#id_"+source)
		}
		attrs += ` data-prepopulate-from="` + esc(strings.Join(sources, ",")) + `"`
	}

	switch field.Widget {
	case WidgetTextarea:
		w.raw(`<textarea`, attrs, ` rows="10" cols="40">`, esc(field.Value), `</textarea>`)
	case WidgetNumber:
		w.raw(`<input type="number"`, attrs, ` value="`, esc(field.Value), `">`)
	case WidgetFile:
		w.raw(`<input type="file"`, attrs, ` accept="image/*">`)
	case WidgetSelect, WidgetSelectMultiple:
		multiple := ""
		selected := map[string]bool{field.Value: true}
		if field.Widget == WidgetSelectMultiple {
			multiple = " multiple"
			selected = make(map[string]bool, len(field.Values))
			for _, value := range field.Values {
				selected[value] = true
			}
		}
		w.raw(`<select`, attrs, multiple, `>`)
		if field.Widget == WidgetSelect {
			w.raw(`<option value="">---------</option>`)
		}
		for _, choice := range field.Choices {
			mark := ""
			if selected[choice.Value] {
				mark = " selected"
			}
			w.raw(`<option value="`, esc(choice.Value), `"`, mark, `>`, esc(choice.Label), `</option>`)
		}
		w.raw(`</select>`)
	default:
		w.raw(`<input type="text"`, attrs, ` maxlength="255" value="`, esc(field.Value), `">`)
	}

	if field.Preview != nil {
		w.raw(`<div class="readonly">`)
		w.component(field.Preview)
		w.raw(`</div>`)
	}
	w.raw(`</div>`)
}

func plural(count int64) string {
	if count == 1 {
		return ""
	}
	return "s"
}
