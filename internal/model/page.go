package model

// Page is one slice of a server-paginated collection.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// PageFromSlice wraps an unpaginated result as a single complete page.
func PageFromSlice[T any](items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 1
	if len(items) == 0 {
		pages = 0
	}
	return Page[T]{
		Content:       items,
		Number:        0,
		Size:          len(items),
		TotalElements: int64(len(items)),
		TotalPages:    pages,
		First:         true,
		Last:          true,
	}
}

// Slice cuts a page out of an in-memory collection.
func Slice[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		return PageFromSlice(items)
	}
	if page < 0 {
		page = 0
	}
	total := len(items)
	pages := (total + size - 1) / size
	start := min(page*size, total)
	end := min(start+size, total)
	content := make([]T, end-start)
	copy(content, items[start:end])
	return Page[T]{
		Content:       content,
		Number:        page,
		Size:          size,
		TotalElements: int64(total),
		TotalPages:    pages,
		First:         page == 0,
		Last:          page >= pages-1,
	}
}

// Pagination is the page metadata without content.
type Pagination struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func (p Page[T]) Meta() Pagination {
	return Pagination{Page: p.Number, Size: p.Size, Total: p.TotalElements, TotalPages: p.TotalPages}
}
