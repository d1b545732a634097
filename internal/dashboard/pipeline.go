package dashboard

import (
	"strings"
)

// Item is a listable record
type Item interface {
	ItemID() string
	ItemName() string
}

// Filter keeps items whose name or identifier contains term, ignoring case.
// The term is matched as typed, whitespace included. An empty term keeps everything.
func Filter[T Item](items []T, term string) []T {
	term = strings.ToLower(term)
	if term == "" {
		return items
	}

	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.ItemName()), term) ||
			strings.Contains(strings.ToLower(it.ItemID()), term) {
			out = append(out, it)
		}
	}
	return out
}

// PageInfo describes the visible slice of a filtered list
type PageInfo struct {
	Page      int  `json:"page"`
	PageSize  int  `json:"page_size"`
	PageCount int  `json:"page_count"`
	Total     int  `json:"total"`
	Start     int  `json:"start"`
	End       int  `json:"end"`
	HasPrev   bool `json:"has_prev"`
	HasNext   bool `json:"has_next"`
}

// PageCount returns how many pages total items fill
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Paginate returns items [(page-1)*size, page*size); the last page may be short
func Paginate[T any](items []T, page, size int) ([]T, PageInfo) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	count := PageCount(len(items), size)
	info := PageInfo{
		Page:      page,
		PageSize:  size,
		PageCount: count,
		Total:     len(items),
		HasPrev:   page > 1,
		HasNext:   page < count,
	}

	start := (page - 1) * size
	if start >= len(items) {
		info.Start, info.End = len(items), len(items)
		return []T{}, info
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}

	info.Start, info.End = start, end
	return items[start:end], info
}
