package services

import "gorm.io/gorm"

// Pagination describes the position of one page within a listing.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Page is one page of an ordered listing.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// paginate counts q, then loads the requested page into a Page with the given
// associations preloaded. Page numbers start at 1; asking for a page past the last one
// is ErrNotFound, except page 1 of an empty listing.
func paginate[T any](q *gorm.DB, page, pageSize int, preload ...string) (Page[T], error) {
	if page < 1 {
		page = 1
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[T]{}, err
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if page > 1 && page > totalPages {
		return Page[T]{}, ErrNotFound
	}

	find := q.Session(&gorm.Session{})
	for _, name := range preload {
		find = find.Preload(name)
	}
	items := make([]T, 0, pageSize)
	if err := find.Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		return Page[T]{}, err
	}
	return Page[T]{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}
