package catalog

// CategoryDraft is the normalized form of a category link from a listing page.
type CategoryDraft struct {
	Name *string
	URL  *string
}

// Kind implements Draft.
func (*CategoryDraft) Kind() Kind {
	return KindCategory
}

// Category is a validated catalogue category.
type Category struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Kind implements Record.
func (Category) Kind() Kind {
	return KindCategory
}
