package http

import (
	"context"
	"fmt"
	stdhttp "net/http"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"sitewomen/app/internal/http/templates"
	"sitewomen/app/internal/urls"
	"sitewomen/app/internal/women"
)

const dateLayout = "January 2, 2006"

var aboutParagraphs = []string{
	"Sitewomen tells the stories of famous women: actresses, singers, athletes and scientists.",
	"Every entry belongs to a category and may carry tags. Drafts stay hidden until an editor publishes them in the back office.",
}

func (s *Server) homeHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	entries, err := s.service.Published(r.Context(), women.ListOptions{})
	if err != nil {
		s.handleServiceError(w, r, err, "loading home page", nil)
		return
	}

	s.renderPage(w, r, stdhttp.StatusOK, s.layout(r.Context(), "Home page", 0), templates.ListPage(templates.ListPageData{
		Heading: "Home page",
		Entries: s.entryViews(entries),
	}))
}

func (s *Server) aboutHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.renderPage(w, r, stdhttp.StatusOK, s.layout(r.Context(), "About the site", 0), templates.AboutPage(templates.AboutPageData{
		Paragraphs: aboutParagraphs,
	}))
}

func (s *Server) categoryByIDHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, _ := urls.Int(r, "cat_id")
	category, entries, err := s.service.CategoryByID(r.Context(), uint(id))
	if err != nil {
		s.handleServiceError(w, r, err, "loading category", logrus.Fields{"category_id": id})
		return
	}
	s.renderCategory(w, r, category, entries)
}

func (s *Server) categoryBySlugHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	slug, _ := urls.String(r, "cat_slug")
	category, entries, err := s.service.CategoryBySlug(r.Context(), slug)
	if err != nil {
		s.handleServiceError(w, r, err, "loading category", logrus.Fields{"slug": slug})
		return
	}
	s.renderCategory(w, r, category, entries)
}

func (s *Server) renderCategory(w stdhttp.ResponseWriter, r *stdhttp.Request, category *women.Category, entries []women.Women) {
	heading := "Category: " + category.Name
	s.renderPage(w, r, stdhttp.StatusOK, s.layout(r.Context(), heading, category.ID), templates.ListPage(templates.ListPageData{
		Heading:      heading,
		Entries:      s.entryViews(entries),
		EmptyMessage: "There are no published entries in this category yet.",
	}))
}

func (s *Server) archiveHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	year, _ := urls.Int(r, "year")
	entries, err := s.service.Archive(r.Context(), year)
	if err != nil {
		s.handleServiceError(w, r, err, "loading archive", logrus.Fields{"year": year})
		return
	}

	heading := fmt.Sprintf("Archive for %04d", year)
	s.renderPage(w, r, stdhttp.StatusOK, s.layout(r.Context(), heading, 0), templates.ListPage(templates.ListPageData{
		Heading:      heading,
		Entries:      s.entryViews(entries),
		EmptyMessage: "Nothing was published that year.",
	}))
}

func (s *Server) postHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	slug, _ := urls.String(r, "post_slug")
	entry, err := s.service.GetBySlug(r.Context(), slug)
	if err != nil {
		s.handleServiceError(w, r, err, "loading post", logrus.Fields{"slug": slug})
		return
	}

	data := templates.PostPageData{
		Title:      entry.Title,
		Paragraphs: paragraphs(entry.Content),
		Category: templates.CategoryLink{
			Name: entry.Category.Name,
			URL:  s.reverse("cats", map[string]any{"cat_slug": entry.Category.Slug}),
		},
		Published: entry.TimeCreate.UTC().Format(dateLayout),
		PhotoURL:  s.media.URL(entry.Photo),
		Tags:      s.tagLinks(entry.Tags),
	}
	if entry.Husband != nil {
		data.Husband = entry.Husband.Name
	}

	s.renderPage(w, r, stdhttp.StatusOK, s.layout(r.Context(), entry.Title, entry.CategoryID), templates.PostPage(data))
}

func (s *Server) handleServiceError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error, message string, fields logrus.Fields) {
	if eris.Is(err, women.ErrNotFound) {
		s.renderError(w, r, stdhttp.StatusNotFound, "We couldn't find that page.")
		return
	}
	s.recordError(r.Context(), err, message, fields)
	s.renderError(w, r, stdhttp.StatusInternalServerError, errorFallbackMessage)
}

func (s *Server) menu() []templates.MenuItem {
	return []templates.MenuItem{
		{Title: "Home", URL: s.reverse("home", nil)},
		{Title: "About", URL: s.reverse("about", nil)},
		{Title: "Admin", URL: s.reverse("admin:index", nil)},
	}
}

// layout loads the category menu. A failing menu is logged and left empty
// rather than failing the page.
func (s *Server) layout(ctx context.Context, title string, selected uint) templates.LayoutData {
	data := templates.LayoutData{
		Title:   title + " • Sitewomen",
		Menu:    s.menu(),
		HomeURL: s.reverse("home", nil),
	}

	categories, err := s.service.Categories(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading category menu", nil)
		return data
	}

	data.Categories = make([]templates.CategoryLink, 0, len(categories))
	for _, category := range categories {
		data.Categories = append(data.Categories, templates.CategoryLink{
			Name:     category.Name,
			URL:      s.reverse("cats", map[string]any{"cat_slug": category.Slug}),
			Selected: category.ID == selected,
		})
	}
	return data
}

func (s *Server) entryViews(entries []women.Women) []templates.EntryView {
	views := make([]templates.EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, templates.EntryView{
			Title:     entry.Title,
			URL:       s.reverse("post", map[string]any{"post_slug": entry.Slug}),
			Excerpt:   excerpt(entry.Content, excerptLength),
			Category:  entry.Category.Name,
			Published: entry.TimeCreate.UTC().Format(dateLayout),
			PhotoURL:  s.media.URL(entry.Photo),
			Tags:      s.tagLinks(entry.Tags),
		})
	}
	return views
}

func (s *Server) tagLinks(tags []women.Tag) []templates.TagLink {
	links := make([]templates.TagLink, 0, len(tags))
	for _, tag := range tags {
		links = append(links, templates.TagLink{Name: tag.Tag, URL: "/api/women?tag=" + tag.Slug})
	}
	return links
}

// reverse builds a named route. Route names are fixed at construction, so a
// failure is logged and the site root returned.
func (s *Server) reverse(name string, values map[string]any) string {
	path, err := s.urls.Reverse(name, values)
	if err != nil {
		s.recordError(context.Background(), err, "reversing route", logrus.Fields{"route": name})
		return "/"
	}
	return path
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		s.logger.WithField("error", err.Error()).WithFields(requestFields(ctx, fields)).Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
