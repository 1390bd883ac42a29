package pagination

// PageData holds the $limit/$skip/total triple of a paginated query and the
// page math on top of it.
type PageData struct {
	Limit int
	Skip  int
	Total int
}

func (p *PageData) PageCount() int {
	if p.Limit <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

func (p *PageData) CurrentPage() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Skip/p.Limit + 1
}

// SetCurrentPage moves skip to the given page, clamped to [1, PageCount].
func (p *PageData) SetCurrentPage(page int) {
	if page < 1 {
		page = 1
	}
	if count := p.PageCount(); page > count {
		page = count
	}
	p.Skip = (page - 1) * p.Limit
}

func (p *PageData) CanPrev() bool {
	return p.CurrentPage() > 1
}

func (p *PageData) CanNext() bool {
	return p.CurrentPage() < p.PageCount()
}

func (p *PageData) Next() {
	p.SetCurrentPage(p.CurrentPage() + 1)
}

func (p *PageData) Prev() {
	p.SetCurrentPage(p.CurrentPage() - 1)
}

func (p *PageData) ToStart() {
	p.SetCurrentPage(1)
}

func (p *PageData) ToEnd() {
	p.SetCurrentPage(p.PageCount())
}

func (p *PageData) ToPage(page int) {
	p.SetCurrentPage(page)
}
