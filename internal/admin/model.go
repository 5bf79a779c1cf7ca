package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sitewomen/app/internal/slug"
	"sitewomen/app/internal/urls"
)

const (
	maxFormMemory = 32 << 20

	selectedActionField = "_selected_action"
	selectAcrossField   = "select_across"
	actionField         = "action"
	editablePKField     = "form-pk"

	noSelectionMessage = "Items must be selected in order to perform actions on them. No items have been changed."
	noActionMessage    = "No action selected."
	formErrorMessage   = "Please correct the errors below."
)

type modelHandler[T any] struct {
	site  *Site
	admin *ModelAdmin[T]
	links map[string]bool
}

// Register validates ma and mounts its changelist, add and change pages.
func Register[T any](site *Site, ma *ModelAdmin[T]) error {
	if site == nil {
		return eris.New("admin site is required")
	}
	if err := ma.validate(); err != nil {
		return eris.Wrapf(err, "registering %s admin", ma.Name)
	}
	for _, existing := range site.models {
		if existing.Name == ma.Name {
			return eris.Errorf("model %s is already registered", ma.Name)
		}
	}

	h := &modelHandler[T]{site: site, admin: ma, links: ma.linkColumns()}

	base := site.prefix + "/" + ma.Name + "/"
	routes := []struct {
		pattern string
		name    string
		handler http.HandlerFunc
	}{
		{base, h.routeName("changelist"), h.handleChangeList},
		{base + "add/", h.routeName("add"), h.handleAdd},
		{base + "<int:id>/change/", h.routeName("change"), h.handleChange},
	}
	for _, route := range routes {
		err := site.router.HandleFunc(route.pattern, route.name, site.requireStaff(route.handler), http.MethodGet, http.MethodPost)
		if err != nil {
			return eris.Wrapf(err, "registering %s", route.name)
		}
	}

	site.models = append(site.models, modelEntry{
		Name:              ma.Name,
		VerboseNamePlural: ma.VerboseNamePlural,
		ListURL:           site.url(h.routeName("changelist"), nil),
		AddURL:            site.url(h.routeName("add"), nil),
	})

	return nil
}

func (ma *ModelAdmin[T]) validate() error {
	if !validModelName(ma.Name) {
		return eris.Errorf("model name %q must be lowercase letters, digits or underscores", ma.Name)
	}
	if ma.PK == nil || ma.String == nil {
		return eris.New("PK and String accessors are required")
	}
	if ma.Form == nil {
		return eris.New("form is required")
	}
	if ma.ListPerPage < 0 {
		return eris.Errorf("list per page must be positive, got %d", ma.ListPerPage)
	}
	if ma.VerboseName == "" {
		ma.VerboseName = ma.Name
	}
	if ma.VerboseNamePlural == "" {
		ma.VerboseNamePlural = ma.VerboseName
	}

	columns := make(map[string]bool, len(ma.ListDisplay))
	for _, column := range ma.ListDisplay {
		if column.Name == "" || column.Render == nil {
			return eris.New("list display columns need a name and a renderer")
		}
		if columns[column.Name] {
			return eris.Errorf("list display column %s is repeated", column.Name)
		}
		columns[column.Name] = true
	}
	if len(columns) == 0 {
		return eris.New("list display needs at least one column")
	}

	links := ma.linkColumns()
	for _, editable := range ma.ListEditable {
		if !columns[editable.Column] {
			return eris.Errorf("list editable %s is not in list display", editable.Column)
		}
		if links[editable.Column] {
			return eris.Errorf("list editable %s cannot also be a link", editable.Column)
		}
		if editable.Field == "" || editable.Value == nil || editable.Parse == nil {
			return eris.Errorf("list editable %s needs a field, value and parser", editable.Column)
		}
	}

	fields := make(map[string]bool, len(ma.Fields))
	for _, field := range ma.Fields {
		fields[field] = true
	}
	for target, sources := range ma.Prepopulated {
		if len(ma.Fields) > 0 && !fields[target] {
			return eris.Errorf("prepopulated field %s is not a form field", target)
		}
		if len(sources) == 0 {
			return eris.Errorf("prepopulated field %s has no sources", target)
		}
	}

	actions := make(map[string]bool, len(ma.Actions))
	for _, action := range ma.Actions {
		if action.Name == "" || action.Run == nil {
			return eris.New("actions need a name and a run function")
		}
		if actions[action.Name] {
			return eris.Errorf("action %s is repeated", action.Name)
		}
		actions[action.Name] = true
	}

	return nil
}

// linkColumns returns the display columns linking to the change page. Without an
// explicit link the first column links.
func (ma *ModelAdmin[T]) linkColumns() map[string]bool {
	links := make(map[string]bool)
	for _, column := range ma.ListDisplay {
		if column.Link {
			links[column.Name] = true
		}
	}
	if len(links) == 0 && len(ma.ListDisplay) > 0 {
		links[ma.ListDisplay[0].Name] = true
	}
	return links
}

func validModelName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

func (h *modelHandler[T]) routeName(view string) string {
	return "admin:" + h.admin.Name + "_" + view
}

func (h *modelHandler[T]) changeURL(id uint) string {
	return h.site.url(h.routeName("change"), map[string]any{"id": int(id)})
}

func (h *modelHandler[T]) handleChangeList(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.handleChangeListPost(w, r)
		return
	}

	ctx := r.Context()
	cl, err := h.admin.ChangeList(ctx, h.site.db, r.URL.Query())
	if err != nil {
		h.site.serverError(w, r, err, "loading changelist")
		return
	}

	page, err := h.changeListPage(ctx, r, cl)
	if err != nil {
		h.site.serverError(w, r, err, "building changelist")
		return
	}

	h.site.render(w, r, http.StatusOK, "Select "+h.admin.VerboseName+" to change", changeListView(page))
}

func (h *modelHandler[T]) handleChangeListPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.site.addMessage(w, r, Message{Level: LevelError, Text: "The submitted form could not be read."})
		http.Redirect(w, r, r.URL.RequestURI(), http.StatusFound)
		return
	}

	cl := h.admin.newChangeList(r.URL.Query())

	if r.PostForm.Get("_save") != "" && len(h.admin.ListEditable) > 0 {
		h.saveEditable(w, r, cl)
	} else {
		h.runAction(w, r, cl)
	}

	http.Redirect(w, r, r.URL.RequestURI(), http.StatusFound)
}

func (h *modelHandler[T]) runAction(w http.ResponseWriter, r *http.Request, cl *ChangeList[T]) {
	ctx := r.Context()

	var action *Action[T]
	name := r.PostForm.Get(actionField)
	for i := range h.admin.Actions {
		if h.admin.Actions[i].Name == name {
			action = &h.admin.Actions[i]
			break
		}
	}

	selectAcross := r.PostForm.Get(selectAcrossField) == "1"
	ids := parseIDs(r.PostForm[selectedActionField])
	if len(ids) == 0 && !selectAcross {
		h.site.addMessage(w, r, Message{Level: LevelWarning, Text: noSelectionMessage})
		return
	}
	if action == nil {
		h.site.addMessage(w, r, Message{Level: LevelWarning, Text: noActionMessage})
		return
	}

	var message Message
	err := h.site.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		selection := cl.Filtered(tx)
		if selectAcross {
			// Every row matching the current filters, which may be the whole table.
			selection = selection.Session(&gorm.Session{AllowGlobalUpdate: true})
		} else {
			selection = selection.Where(h.admin.pkColumn()+" IN ?", ids)
		}

		var runErr error
		message, runErr = action.Run(ctx, selection)
		return runErr
	})
	if err != nil {
		h.site.recordError(r, logrus.Fields{"model": h.admin.Name, "action": action.Name}, err, "running admin action")
		h.site.addMessage(w, r, Message{Level: LevelError, Text: fmt.Sprintf("%s failed. No items have been changed.", action.Description)})
		return
	}

	if h.site.onAction != nil {
		h.site.onAction(h.admin.Name, action.Name)
	}
	h.site.logInfo(logrus.Fields{"model": h.admin.Name, "action": action.Name, "selected": len(ids)}, "admin action applied")

	if message.Text != "" {
		h.site.addMessage(w, r, message)
	}
}

func (h *modelHandler[T]) saveEditable(w http.ResponseWriter, r *http.Request, cl *ChangeList[T]) {
	ctx := r.Context()
	ids := parseIDs(r.PostForm[editablePKField])
	pk := h.admin.pkColumn()

	changed := make(map[uint]bool)
	err := h.site.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			for _, editable := range h.admin.ListEditable {
				raw, submitted := r.PostForm[editableFieldName(id, editable.Field)]
				if !submitted || len(raw) == 0 {
					continue
				}

				value, err := editable.Parse(raw[0])
				if err != nil {
					return eris.Wrapf(err, "parsing %s of %s %d", editable.Field, h.admin.Name, id)
				}

				updates := map[string]any{editable.Field: value}
				if h.admin.UpdatedColumn != "" {
					updates[h.admin.UpdatedColumn] = time.Now().UTC()
				}

				result := cl.Filtered(tx).
					Where(pk+" = ?", id).
					Where(editable.Field+" <> ?", value).
					Updates(updates)
				if result.Error != nil {
					return eris.Wrapf(result.Error, "updating %s of %s %d", editable.Field, h.admin.Name, id)
				}
				if result.RowsAffected > 0 {
					changed[id] = true
				}
			}
		}
		return nil
	})
	if err != nil {
		h.site.recordError(r, logrus.Fields{"model": h.admin.Name}, err, "saving list editable values")
		h.site.addMessage(w, r, Message{Level: LevelError, Text: "Please correct the errors below. No items have been changed."})
		return
	}

	name := h.admin.VerboseNamePlural
	verb := "were"
	if len(changed) == 1 {
		name, verb = h.admin.VerboseName, "was"
	}
	h.site.addMessage(w, r, Message{Level: LevelSuccess, Text: fmt.Sprintf("%d %s %s changed successfully.", len(changed), name, verb)})
}

func (h *modelHandler[T]) handleAdd(w http.ResponseWriter, r *http.Request) {
	h.handleForm(w, r, new(T), true)
}

func (h *modelHandler[T]) handleChange(w http.ResponseWriter, r *http.Request) {
	id, ok := urls.Int(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	item, err := h.load(r.Context(), uint(id))
	if err != nil {
		h.site.serverError(w, r, err, "loading object")
		return
	}
	if item == nil {
		h.site.addMessage(w, r, Message{
			Level: LevelWarning,
			Text:  fmt.Sprintf("%s with ID “%d” doesn’t exist. Perhaps it was deleted?", h.admin.VerboseName, id),
		})
		http.Redirect(w, r, h.site.url("admin:index", nil), http.StatusFound)
		return
	}

	h.handleForm(w, r, item, false)
}

func (h *modelHandler[T]) load(ctx context.Context, id uint) (*T, error) {
	query := h.site.db.WithContext(ctx)
	for _, preload := range h.admin.Preload {
		query = query.Preload(preload)
	}

	item := new(T)
	if err := query.First(item, h.admin.pkColumn()+" = ?", id).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "loading %s %d", h.admin.Name, id)
	}
	return item, nil
}

func (h *modelHandler[T]) handleForm(w http.ResponseWriter, r *http.Request, item *T, created bool) {
	ctx := r.Context()
	var errs FieldErrors

	if r.Method == http.MethodPost {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil && !eris.Is(err, http.ErrNotMultipart) {
			h.site.serverError(w, r, err, "parsing change form")
			return
		}
		h.prepopulate(r)

		var err error
		errs, err = h.admin.Form.Bind(ctx, r, item)
		if err != nil {
			h.site.serverError(w, r, err, "binding change form")
			return
		}

		if len(errs) == 0 {
			err := h.site.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return h.admin.Form.Save(ctx, tx, item, created)
			})
			if err != nil {
				h.site.serverError(w, r, err, "saving change form")
				return
			}

			if h.admin.OnChange != nil {
				h.admin.OnChange(ctx, item)
			}

			h.afterSave(w, r, item, created)
			return
		}
	}

	fields, err := h.admin.Form.Fields(ctx, item)
	if err != nil {
		h.site.serverError(w, r, err, "building change form")
		return
	}

	page := changeFormPage{
		Model:     h.entry(),
		Fields:    h.orderFields(fields, errs),
		Errors:    errs[NonFieldErrors],
		Multipart: hasFileField(fields),
		Action:    r.URL.RequestURI(),
		Created:   created,
	}
	title := "Add " + h.admin.VerboseName
	if !created {
		title = "Change " + h.admin.VerboseName
		page.Object = h.admin.String(item)
	}
	page.Title = title

	if len(errs) > 0 {
		page.Errors = append([]string{formErrorMessage}, page.Errors...)
	}

	h.site.render(w, r, http.StatusOK, title, changeFormView(page))
}

func (h *modelHandler[T]) afterSave(w http.ResponseWriter, r *http.Request, item *T, created bool) {
	verb := "changed"
	if created {
		verb = "added"
	}
	text := fmt.Sprintf("The %s “%s” was %s successfully.", h.admin.VerboseName, h.admin.String(item), verb)
	h.site.addMessage(w, r, Message{Level: LevelSuccess, Text: text})

	target := h.site.url(h.routeName("changelist"), nil)
	switch {
	case r.PostForm.Get("_continue") != "":
		target = h.changeURL(h.admin.PK(item))
	case r.PostForm.Get("_addanother") != "":
		target = h.site.url(h.routeName("add"), nil)
	}

	h.site.logInfo(logrus.Fields{"model": h.admin.Name, "id": h.admin.PK(item), "created": created}, "admin object saved")
	http.Redirect(w, r, target, http.StatusFound)
}

// prepopulate fills blank target fields from their sources, e.g. slug from title.
// A slug that was already submitted is left alone.
func (h *modelHandler[T]) prepopulate(r *http.Request) {
	for target, sources := range h.admin.Prepopulated {
		if strings.TrimSpace(r.PostForm.Get(target)) != "" {
			continue
		}
		parts := make([]string, 0, len(sources))
		for _, source := range sources {
			parts = append(parts, r.PostForm.Get(source))
		}
		r.PostForm.Set(target, slug.Make(strings.Join(parts, " ")))
	}
}

func (h *modelHandler[T]) orderFields(fields []FormField, errs FieldErrors) []FormField {
	byName := make(map[string]FormField, len(fields))
	for _, field := range fields {
		byName[field.Name] = field
	}

	names := h.admin.Fields
	if len(names) == 0 {
		for _, field := range fields {
			names = append(names, field.Name)
		}
	}

	ordered := make([]FormField, 0, len(names))
	for _, name := range names {
		field, ok := byName[name]
		if !ok {
			continue
		}
		field.Errors = append(field.Errors, errs[name]...)
		field.prepopulateFrom = h.admin.Prepopulated[name]
		ordered = append(ordered, field)
	}
	return ordered
}

func (h *modelHandler[T]) entry() modelEntry {
	for _, entry := range h.site.models {
		if entry.Name == h.admin.Name {
			return entry
		}
	}
	return modelEntry{Name: h.admin.Name, VerboseNamePlural: h.admin.VerboseNamePlural}
}

func (h *modelHandler[T]) changeListPage(ctx context.Context, r *http.Request, cl *ChangeList[T]) (changeListPage, error) {
	ma := h.admin
	page := changeListPage{
		Model:         h.entry(),
		Query:         cl.Query,
		ResultCount:   cl.ResultCount,
		FullCount:     cl.FullCount,
		SearchEnabled: len(ma.SearchFields) > 0,
		Editable:      len(ma.ListEditable) > 0,
		FormAction:    r.URL.RequestURI(),
		Page:          cl.Page,
		NumPages:      cl.Paginator.NumPages(),
		Filtered:      len(cl.Filters) > 0 || cl.Query != "",
	}

	for param, value := range cl.Filters {
		page.HiddenParams = append(page.HiddenParams, Lookup{Value: value, Label: param})
	}

	for _, action := range ma.Actions {
		page.Actions = append(page.Actions, Lookup{Value: action.Name, Label: action.Description})
	}

	for i, column := range ma.ListDisplay {
		header := headerView{Label: column.Header, Sortable: column.SortKey != ""}
		if header.Label == "" {
			header.Label = column.Name
		}
		if header.Sortable {
			header.Priority, header.Desc, header.Sorted = cl.sortState(i + 1)
			header.URL = cl.SortURL(i + 1)
		}
		page.Headers = append(page.Headers, header)
	}

	editables := make(map[string]Editable[T], len(ma.ListEditable))
	for _, editable := range ma.ListEditable {
		editables[editable.Column] = editable
	}

	for i := range cl.Results {
		item := &cl.Results[i]
		id := ma.PK(item)
		row := rowView{PK: id}
		for _, column := range ma.ListDisplay {
			cell := cellView{Content: column.Render(ctx, item)}
			if h.links[column.Name] {
				cell.LinkURL = h.changeURL(id)
			}
			if editable, ok := editables[column.Name]; ok {
				cell.Select = &selectView{
					Name:     editableFieldName(id, editable.Field),
					Choices:  editable.Choices,
					Selected: editable.Value(item),
				}
			}
			row.Cells = append(row.Cells, cell)
		}
		page.Rows = append(page.Rows, row)
	}

	for _, filter := range ma.ListFilters {
		lookups, err := filter.Lookups(ctx, h.site.db)
		if err != nil {
			return changeListPage{}, eris.Wrapf(err, "loading %s filter", filter.Parameter())
		}

		current, active := cl.Filters[filter.Parameter()]
		view := filterView{Title: filter.Title()}
		view.Choices = append(view.Choices, choiceView{Label: "All", URL: cl.FilterURL(filter.Parameter(), ""), Selected: !active})
		for _, lookup := range lookups {
			view.Choices = append(view.Choices, choiceView{
				Label:    lookup.Label,
				URL:      cl.FilterURL(filter.Parameter(), lookup.Value),
				Selected: active && current == lookup.Value,
			})
		}
		page.Filters = append(page.Filters, view)
	}

	for _, number := range cl.Paginator.PageRange(cl.Page) {
		link := pageLink{Number: number, Current: number == cl.Page}
		if number != Ellipsis {
			link.URL = cl.PageURL(number)
		}
		page.Pages = append(page.Pages, link)
	}

	return page, nil
}

func editableFieldName(id uint, field string) string {
	return "form-" + strconv.FormatUint(uint64(id), 10) + "-" + field
}

func parseIDs(raw []string) []uint {
	ids := make([]uint, 0, len(raw))
	seen := make(map[uint]bool, len(raw))
	for _, value := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil || id == 0 || seen[uint(id)] {
			continue
		}
		seen[uint(id)] = true
		ids = append(ids, uint(id))
	}
	return ids
}

func hasFileField(fields []FormField) bool {
	for _, field := range fields {
		if field.Widget == WidgetFile {
			return true
		}
	}
	return false
}

// Text renders value as escaped text.
func Text(value string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(value))
		return err
	})
}
