package models

// Page is the canonical paginated list shape every backend list response is
// normalized into. Unknown backend shapes map to an empty page rather than a
// guess.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Total       int `json:"total"`
}

// EmptyPage returns a well-formed page with no items for the given page
// number.
func EmptyPage[T any](page int) Page[T] {
	if page < 1 {
		page = 1
	}
	return Page[T]{Items: []T{}, CurrentPage: page, LastPage: page}
}

// HasMore reports whether further pages exist after the current one
func (p Page[T]) HasMore() bool {
	return p.CurrentPage < p.LastPage
}
