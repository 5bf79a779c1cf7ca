package http

import (
	"bytes"
	"context"
	"fmt"
	stdhttp "net/http"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"sitewomen/app/internal/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't process your request right now."
)

func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "rendering component")
	}
	return buf.Bytes(), nil
}

func (s *Server) renderPage(w stdhttp.ResponseWriter, r *stdhttp.Request, status int, layout templates.LayoutData, body templ.Component) {
	page, err := renderComponent(r.Context(), templates.Layout(layout, body))
	if err != nil {
		s.recordError(r.Context(), err, "rendering page", logrus.Fields{"path": r.URL.Path})
		s.renderError(w, r, stdhttp.StatusInternalServerError, "We couldn't render this page right now.")
		return
	}

	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(status)
	_, _ = w.Write(page)
}

// renderError writes an error page. It never touches the database so it is safe
// to use from middleware.
func (s *Server) renderError(w stdhttp.ResponseWriter, r *stdhttp.Request, status int, message string) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	layout := templates.LayoutData{
		Title:   label + " • Sitewomen",
		Menu:    s.menu(),
		HomeURL: s.reverse("home", nil),
	}

	body, err := renderComponent(r.Context(), templates.Layout(layout, templates.ErrorPage(templates.ErrorPageData{
		StatusLabel: label,
		Message:     message,
	})))
	if err != nil {
		s.recordError(r.Context(), err, "rendering error page", logrus.Fields{"status": status})
		body = []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, templ.EscapeString(message)))
	}

	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) notFoundHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.renderError(w, r, stdhttp.StatusNotFound, "We couldn't find that page.")
}

func (s *Server) csrfFailureHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if s.logger != nil {
		s.logger.WithFields(requestFields(r.Context(), logrus.Fields{"path": r.URL.Path})).Warn("csrf check failed")
	}
	s.renderError(w, r, stdhttp.StatusForbidden, "The form has expired. Go back, reload the page and try again.")
}
