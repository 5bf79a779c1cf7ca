package templates

import "github.com/a-h/templ"

// Layout wraps body in the shared page chrome: navigation, category menu and footer.
func Layout(data LayoutData, body templ.Component) templ.Component {
	return component(func(w *writer) {
		title := data.Title
		if title == "" {
			title = "Sitewomen"
		}
		footer := data.FooterNote
		if footer == "" {
			footer = DefaultFooterNote
		}

		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.raw(`<title>`, esc(title), `</title></head><body>`)

		w.raw(`<header class="site-header"><a class="logo" href="`, esc(data.HomeURL), `">Sitewomen</a><nav><ul class="mainmenu">`)
		for _, item := range data.Menu {
			w.raw(`<li><a href="`, esc(item.URL), `">`, esc(item.Title), `</a></li>`)
		}
		w.raw(`</ul></nav></header>`)

		w.raw(`<div class="page"><aside class="sidebar"><ul class="categories">`)
		for _, category := range data.Categories {
			if category.Selected {
				w.raw(`<li class="selected">`, esc(category.Name), `</li>`)
				continue
			}
			w.raw(`<li><a href="`, esc(category.URL), `">`, esc(category.Name), `</a></li>`)
		}
		w.raw(`</ul></aside>`)

		w.raw(`<main class="content">`)
		w.component(body)
		w.raw(`</main></div>`)

		w.raw(`<footer class="site-footer"><p>`, esc(footer), `</p></footer></body></html>`)
	})
}
