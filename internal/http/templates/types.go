package templates

// DefaultFooterNote is shown in the shared layout when a page does not supply custom text.
const DefaultFooterNote = "Sitewomen collects stories about famous women. Entries are curated in the back office."

// MenuItem is one entry of the top navigation.
type MenuItem struct {
	Title string
	URL   string
}

// CategoryLink is one entry of the sidebar category menu.
type CategoryLink struct {
	Name     string
	URL      string
	Selected bool
}

// TagLink links to the tag listing of the JSON API.
type TagLink struct {
	Name string
	URL  string
}

// LayoutData holds values shared by every public page.
type LayoutData struct {
	Title      string
	Menu       []MenuItem
	Categories []CategoryLink
	HomeURL    string
	FooterNote string
}

// EntryView is a Women entry prepared for listing.
type EntryView struct {
	Title     string
	URL       string
	Excerpt   string
	Category  string
	Published string
	PhotoURL  string
	Tags      []TagLink
}

// ListPageData bundles a heading with the entries to list.
type ListPageData struct {
	Heading      string
	Entries      []EntryView
	EmptyMessage string
}

// PostPageData holds a single published entry.
type PostPageData struct {
	Title      string
	Paragraphs []string
	Category   CategoryLink
	Husband    string
	Published  string
	PhotoURL   string
	Tags       []TagLink
}

// AboutPageData holds the static about text.
type AboutPageData struct {
	Paragraphs []string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	StatusLabel string
	Message     string
}
