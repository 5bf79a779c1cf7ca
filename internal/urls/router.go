package urls

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rotisserie/eris"
)

var segmentPattern = regexp.MustCompile(`<(?:([^<>:]+):)?([^<>:]+)>`)

type contextKey string

const valuesContextKey contextKey = "sitewomen/url-values"

type compiledRoute struct {
	template   string
	converters map[string]Converter
}

// Router compiles converter patterns such as "archive/<year4:year>/" onto a
// gorilla/mux router and builds URLs back from typed values.
type Router struct {
	mux      *mux.Router
	registry *Registry
	routes   map[string]compiledRoute
}

// NewRouter binds a pattern router to mux. The registry is frozen on first use.
func NewRouter(m *mux.Router, registry *Registry) (*Router, error) {
	if m == nil {
		return nil, eris.New("mux router is required")
	}
	if registry == nil {
		registry = Default
	}

	return &Router{mux: m, registry: registry, routes: make(map[string]compiledRoute)}, nil
}

// Handle registers handler under pattern. The name is used by Reverse and must be unique.
func (r *Router) Handle(pattern, name string, handler http.Handler, methods ...string) error {
	if handler == nil {
		return eris.Errorf("handler for %s is required", pattern)
	}
	if name != "" {
		if _, exists := r.routes[name]; exists {
			return eris.Errorf("route name %s is already registered", name)
		}
	}

	r.registry.Freeze()

	compiled, err := r.compile(pattern)
	if err != nil {
		return err
	}

	route := r.mux.Handle(compiled.template, convertValues(compiled.converters, handler))
	if len(methods) > 0 {
		route.Methods(methods...)
	}
	if name != "" {
		route.Name(name)
		r.routes[name] = compiled
	}

	return nil
}

// HandleFunc is Handle for plain functions.
func (r *Router) HandleFunc(pattern, name string, handler http.HandlerFunc, methods ...string) error {
	return r.Handle(pattern, name, handler, methods...)
}

// Reverse builds the path of the named route from typed values.
func (r *Router) Reverse(name string, values map[string]any) (string, error) {
	compiled, ok := r.routes[name]
	if !ok {
		return "", eris.Errorf("unknown route %s", name)
	}

	route := r.mux.Get(name)
	if route == nil {
		return "", eris.Errorf("route %s is not registered on the mux", name)
	}

	pairs := make([]string, 0, len(compiled.converters)*2)
	for param, converter := range compiled.converters {
		value, ok := values[param]
		if !ok {
			return "", eris.Errorf("missing value for %s in route %s", param, name)
		}
		segment, err := converter.ToURL(value)
		if err != nil {
			return "", eris.Wrapf(err, "formatting %s for route %s", param, name)
		}
		pairs = append(pairs, param, segment)
	}

	u, err := route.URL(pairs...)
	if err != nil {
		return "", eris.Wrapf(err, "building url for route %s", name)
	}

	return u.Path, nil
}

// MustReverse is Reverse for routes known to exist, such as template links.
func (r *Router) MustReverse(name string, values map[string]any) string {
	path, err := r.Reverse(name, values)
	if err != nil {
		panic(err)
	}
	return path
}

func (r *Router) compile(pattern string) (compiledRoute, error) {
	converters := make(map[string]Converter)

	var compileErr error
	template := segmentPattern.ReplaceAllStringFunc(pattern, func(segment string) string {
		parts := segmentPattern.FindStringSubmatch(segment)
		convName, param := parts[1], parts[2]
		if convName == "" {
			convName = "str"
		}

		converter, ok := r.registry.Lookup(convName)
		if !ok {
			compileErr = eris.Errorf("unknown converter %s in pattern %s", convName, pattern)
			return segment
		}
		if _, dup := converters[param]; dup {
			compileErr = eris.Errorf("parameter %s repeated in pattern %s", param, pattern)
			return segment
		}

		converters[param] = converter
		return "{" + param + ":" + converter.Regexp() + "}"
	})
	if compileErr != nil {
		return compiledRoute{}, compileErr
	}

	if !strings.HasPrefix(template, "/") {
		template = "/" + template
	}

	return compiledRoute{template: template, converters: converters}, nil
}

func convertValues(converters map[string]Converter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if len(converters) == 0 {
			next.ServeHTTP(w, req)
			return
		}

		vars := mux.Vars(req)
		values := make(map[string]any, len(converters))
		for param, converter := range converters {
			value, err := converter.ToValue(vars[param])
			if err != nil {
				http.NotFound(w, req)
				return
			}
			values[param] = value
		}

		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), valuesContextKey, values)))
	})
}

// Value returns the converted value of a path parameter.
func Value(r *http.Request, param string) (any, bool) {
	values, ok := r.Context().Value(valuesContextKey).(map[string]any)
	if !ok {
		return nil, false
	}
	value, ok := values[param]
	return value, ok
}

// Int returns an int path parameter produced by the int or year4 converters.
func Int(r *http.Request, param string) (int, bool) {
	value, ok := Value(r, param)
	if !ok {
		return 0, false
	}
	n, ok := value.(int)
	return n, ok
}

// String returns a string path parameter produced by the str or slug converters.
func String(r *http.Request, param string) (string, bool) {
	value, ok := Value(r, param)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}
