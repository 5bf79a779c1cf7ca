package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// writer keeps the first write error so components read top to bottom.
type writer struct {
	ctx context.Context
	out io.Writer
	err error
}

func (w *writer) raw(parts ...string) {
	for _, part := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.out, part)
	}
}

func (w *writer) component(c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(w.ctx, w.out)
}

func component(fn func(w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := &writer{ctx: ctx, out: out}
		fn(w)
		return w.err
	})
}

func esc(value string) string {
	return templ.EscapeString(value)
}
