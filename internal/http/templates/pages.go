package templates

import "github.com/a-h/templ"

// ListPage renders a heading followed by entry cards.
func ListPage(data ListPageData) templ.Component {
	return component(func(w *writer) {
		w.raw(`<h1>`, esc(data.Heading), `</h1>`)

		if len(data.Entries) == 0 {
			message := data.EmptyMessage
			if message == "" {
				message = "No entries yet."
			}
			w.raw(`<p class="empty">`, esc(message), `</p>`)
			return
		}

		w.raw(`<ul class="list-articles">`)
		for _, entry := range data.Entries {
			w.raw(`<li class="article">`)
			if entry.PhotoURL != "" {
				w.raw(`<img class="article-photo" src="`, esc(entry.PhotoURL), `" alt="`, esc(entry.Title), `">`)
			}
			w.raw(`<div class="article-panel"><span class="category">`, esc(entry.Category), `</span>`)
			w.raw(`<time>`, esc(entry.Published), `</time></div>`)
			w.raw(`<h2><a href="`, esc(entry.URL), `">`, esc(entry.Title), `</a></h2>`)
			if entry.Excerpt != "" {
				w.raw(`<p>`, esc(entry.Excerpt), `</p>`)
			}
			tagList(w, entry.Tags)
			w.raw(`</li>`)
		}
		w.raw(`</ul>`)
	})
}

// PostPage renders a single entry.
func PostPage(data PostPageData) templ.Component {
	return component(func(w *writer) {
		w.raw(`<article class="post"><h1>`, esc(data.Title), `</h1>`)
		w.raw(`<p class="meta"><a href="`, esc(data.Category.URL), `">`, esc(data.Category.Name), `</a> · <time>`, esc(data.Published), `</time></p>`)
		if data.PhotoURL != "" {
			w.raw(`<img class="post-photo" src="`, esc(data.PhotoURL), `" alt="`, esc(data.Title), `">`)
		}
		if data.Husband != "" {
			w.raw(`<p class="husband">Husband: `, esc(data.Husband), `</p>`)
		}
		for _, paragraph := range data.Paragraphs {
			w.raw(`<p>`, esc(paragraph), `</p>`)
		}
		tagList(w, data.Tags)
		w.raw(`</article>`)
	})
}

// AboutPage renders the static about text.
func AboutPage(data AboutPageData) templ.Component {
	return component(func(w *writer) {
		w.raw(`<h1>About the site</h1>`)
		for _, paragraph := range data.Paragraphs {
			w.raw(`<p>`, esc(paragraph), `</p>`)
		}
	})
}

// ErrorPage renders a status label and a human readable message.
func ErrorPage(data ErrorPageData) templ.Component {
	return component(func(w *writer) {
		w.raw(`<section class="error"><h1>`, esc(data.StatusLabel), `</h1><p>`, esc(data.Message), `</p></section>`)
	})
}

func tagList(w *writer, tags []TagLink) {
	if len(tags) == 0 {
		return
	}
	w.raw(`<ul class="tags">`)
	for _, tag := range tags {
		w.raw(`<li><a href="`, esc(tag.URL), `">`, esc(tag.Name), `</a></li>`)
	}
	w.raw(`</ul>`)
}
