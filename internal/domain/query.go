package domain

import "strings"

// Фиксированный размер страницы выдачи
const PageSize = 5

// SortField обозначает поле сортировки каталога
type SortField string

const (
	SortByFilename    SortField = "filename"
	SortByUploadedAt  SortField = "uploadedAt"
	SortBySize        SortField = "size"
	SortByContentType SortField = "contentType"
	SortByTags        SortField = "tags"
)

var sortKeys = map[string]SortField{
	"filename":    SortByFilename,
	"uploaddate":  SortByUploadedAt,
	"filesize":    SortBySize,
	"contenttype": SortByContentType,
	"tag":         SortByTags,
}

// ParseSortField сопоставляет внешний ключ сортировки с полем записи.
// Неизвестный ключ дает сортировку по имени файла.
func ParseSortField(key string) SortField {
	if field, ok := sortKeys[strings.ToLower(strings.TrimSpace(key))]; ok {
		return field
	}
	return SortByFilename
}

// ListQuery описывает выборку из каталога.
// Ровно одна область: Visibility или Owner.
type ListQuery struct {
	Visibility *Visibility
	Owner      string
	Tag        string
	SortBy     SortField
}

// Page представляет страницу результатов
type Page[T any] struct {
	Items         []T   `json:"content"`
	Page          int   `json:"page"`
	PageSize      int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// NewPage собирает страницу и считает количество страниц
func NewPage[T any](items []T, page, pageSize int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page[T]{
		Items:         items,
		Page:          page,
		PageSize:      pageSize,
		TotalElements: total,
		TotalPages:    pages,
	}
}
