package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"sitewomen/app/internal/db"
	"sitewomen/app/internal/women"
)

// CategoryBody is the JSON form of a category.
type CategoryBody struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TagBody is the JSON form of a tag.
type TagBody struct {
	Tag  string `json:"tag"`
	Slug string `json:"slug"`
}

// WomenSummary is a published entry as listed by the API.
type WomenSummary struct {
	Title      string       `json:"title"`
	Slug       string       `json:"slug"`
	URL        string       `json:"url"`
	Category   CategoryBody `json:"category"`
	Tags       []TagBody    `json:"tags"`
	PhotoURL   string       `json:"photo_url,omitempty"`
	TimeCreate time.Time    `json:"time_create"`
}

// WomenDetail adds the content and spouse to WomenSummary.
type WomenDetail struct {
	WomenSummary
	Content string `json:"content"`
	Husband string `json:"husband,omitempty"`
}

type listWomenInput struct {
	Category string `query:"cat" doc:"Category slug"`
	Tag      string `query:"tag" doc:"Tag slug"`
}

type listWomenOutput struct {
	Body struct {
		Items []WomenSummary `json:"items"`
	}
}

type getWomenInput struct {
	Slug string `path:"slug"`
}

type getWomenOutput struct {
	Body WomenDetail
}

type listCategoriesOutput struct {
	Body struct {
		Items []CategoryBody `json:"items"`
	}
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerAPIRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-women",
		Method:      stdhttp.MethodGet,
		Path:        "/api/women",
		Summary:     "List published women",
		Tags:        []string{"women"},
	}, s.listWomenHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-women",
		Method:      stdhttp.MethodGet,
		Path:        "/api/women/{slug}",
		Summary:     "Fetch a published entry",
		Tags:        []string{"women"},
	}, s.getWomenHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-categories",
		Method:      stdhttp.MethodGet,
		Path:        "/api/categories",
		Summary:     "List categories",
		Tags:        []string{"categories"},
	}, s.listCategoriesHandler)

	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) listWomenHandler(ctx context.Context, input *listWomenInput) (*listWomenOutput, error) {
	opts := women.ListOptions{
		CategorySlug: strings.TrimSpace(input.Category),
		TagSlug:      strings.TrimSpace(input.Tag),
	}

	entries, err := s.service.Published(ctx, opts)
	if err != nil {
		s.recordError(ctx, err, "listing women via api", logrus.Fields{"category": opts.CategorySlug, "tag": opts.TagSlug})
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	out := &listWomenOutput{}
	out.Body.Items = make([]WomenSummary, 0, len(entries))
	for i := range entries {
		out.Body.Items = append(out.Body.Items, s.womenSummary(&entries[i]))
	}
	return out, nil
}

func (s *Server) getWomenHandler(ctx context.Context, input *getWomenInput) (*getWomenOutput, error) {
	entry, err := s.service.GetBySlug(ctx, input.Slug)
	if err != nil {
		if eris.Is(err, women.ErrNotFound) {
			return nil, huma.Error404NotFound("no published entry with that slug")
		}
		s.recordError(ctx, err, "loading women via api", logrus.Fields{"slug": input.Slug})
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	out := &getWomenOutput{}
	out.Body = WomenDetail{
		WomenSummary: s.womenSummary(entry),
		Content:      entry.Content,
	}
	if entry.Husband != nil {
		out.Body.Husband = entry.Husband.Name
	}
	return out, nil
}

func (s *Server) listCategoriesHandler(ctx context.Context, _ *struct{}) (*listCategoriesOutput, error) {
	categories, err := s.service.Categories(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing categories via api", nil)
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	out := &listCategoriesOutput{}
	out.Body.Items = make([]CategoryBody, 0, len(categories))
	for _, category := range categories {
		out.Body.Items = append(out.Body.Items, categoryBody(category))
	}
	return out, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.recordError(ctx, err, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	return resp, nil
}

func (s *Server) womenSummary(entry *women.Women) WomenSummary {
	tags := make([]TagBody, 0, len(entry.Tags))
	for _, tag := range entry.Tags {
		tags = append(tags, TagBody{Tag: tag.Tag, Slug: tag.Slug})
	}

	return WomenSummary{
		Title:      entry.Title,
		Slug:       entry.Slug,
		URL:        s.reverse("post", map[string]any{"post_slug": entry.Slug}),
		Category:   categoryBody(entry.Category),
		Tags:       tags,
		PhotoURL:   s.media.URL(entry.Photo),
		TimeCreate: entry.TimeCreate.UTC(),
	}
}

func categoryBody(category women.Category) CategoryBody {
	return CategoryBody{ID: category.ID, Name: category.Name, Slug: category.Slug}
}
