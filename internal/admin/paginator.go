package admin

// Paginator splits Count rows into pages of PerPage.
type Paginator struct {
	Count   int64
	PerPage int
}

// NumPages is at least one so an empty changelist still has a page to show.
func (p Paginator) NumPages() int {
	if p.PerPage <= 0 || p.Count <= 0 {
		return 1
	}
	return int((p.Count + int64(p.PerPage) - 1) / int64(p.PerPage))
}

// Clamp moves page into 1..NumPages.
func (p Paginator) Clamp(page int) int {
	if page < 1 {
		return 1
	}
	if last := p.NumPages(); page > last {
		return last
	}
	return page
}

// Offset is the row offset of the given page.
func (p Paginator) Offset(page int) int {
	return (p.Clamp(page) - 1) * p.PerPage
}

// Ellipsis marks a gap in PageRange.
const Ellipsis = 0

// PageRange lists the page numbers to link around current, with Ellipsis for gaps.
func (p Paginator) PageRange(current int) []int {
	const onEachSide, onEnds = 3, 2

	last := p.NumPages()
	current = p.Clamp(current)

	if last <= (onEachSide+onEnds)*2 {
		return pageSpan(1, last)
	}

	var pages []int
	if current > 1+onEachSide+onEnds+1 {
		pages = append(pages, pageSpan(1, onEnds)...)
		pages = append(pages, Ellipsis)
		pages = append(pages, pageSpan(current-onEachSide, current)...)
	} else {
		pages = append(pages, pageSpan(1, current)...)
	}

	if current < last-onEachSide-onEnds-1 {
		pages = append(pages, pageSpan(current+1, current+onEachSide)...)
		pages = append(pages, Ellipsis)
		pages = append(pages, pageSpan(last-onEnds+1, last)...)
	} else {
		pages = append(pages, pageSpan(current+1, last)...)
	}

	return pages
}

func pageSpan(from, to int) []int {
	if to < from {
		return nil
	}
	pages := make([]int, 0, to-from+1)
	for page := from; page <= to; page++ {
		pages = append(pages, page)
	}
	return pages
}
