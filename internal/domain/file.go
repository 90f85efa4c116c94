package domain

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Максимальное количество тегов у одного файла
const MaxTags = 5

// Visibility определяет область видимости файла
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// ParseVisibility разбирает видимость без учета регистра
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(strings.ToUpper(strings.TrimSpace(s))) {
	case VisibilityPublic:
		return VisibilityPublic, nil
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	}
	return "", fmt.Errorf("%w: unknown visibility %q", ErrValidation, s)
}

// FileRecord представляет запись каталога об одном загруженном файле
type FileRecord struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	BlobID        string     `json:"blob_id" db:"blob_id"`
	Owner         string     `json:"owner" db:"owner"`
	Filename      string     `json:"filename" db:"filename"`
	Visibility    Visibility `json:"visibility" db:"visibility"`
	Tags          []string   `json:"tags" db:"-"`
	UploadedAt    time.Time  `json:"uploaded_at" db:"uploaded_at"`
	ContentType   string     `json:"content_type" db:"content_type"`
	Size          int64      `json:"size" db:"size"`
	ContentDigest string     `json:"content_digest" db:"content_digest"`
}

// FileSummary представляет внешнее представление записи.
// Не хранится, вычисляется на каждый ответ.
type FileSummary struct {
	Filename     string     `json:"fileName"`
	Visibility   Visibility `json:"visibility"`
	Tags         []string   `json:"tags"`
	UploadedAt   time.Time  `json:"uploadDate"`
	ContentType  string     `json:"contentType"`
	Size         int64      `json:"fileSize"`
	DownloadLink string     `json:"downloadLink"`
}

// FileDownload содержит открытый поток вместе с записью каталога
type FileDownload struct {
	File    *FileRecord
	Content io.ReadCloser
}

// DownloadLink строит ссылку на скачивание blob'а
func DownloadLink(baseAddress, blobID string) string {
	return baseAddress + "/files/" + blobID + "/download"
}

// Summary проецирует запись в FileSummary
func (f *FileRecord) Summary(baseAddress string) FileSummary {
	tags := make([]string, len(f.Tags))
	copy(tags, f.Tags)

	return FileSummary{
		Filename:     f.Filename,
		Visibility:   f.Visibility,
		Tags:         tags,
		UploadedAt:   f.UploadedAt,
		ContentType:  f.ContentType,
		Size:         f.Size,
		DownloadLink: DownloadLink(baseAddress, f.BlobID),
	}
}

// NormalizeTags возвращает отсортированную копию тегов без повторов.
// Регистр сохраняется, "a" и "A" считаются разными тегами.
func NormalizeTags(tags []string) []string {
	sorted := make([]string, 0, len(tags))
	sorted = append(sorted, tags...)
	sort.Strings(sorted)
	return slices.Compact(sorted)
}

// HasTag проверяет наличие тега без учета регистра
func (f *FileRecord) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
