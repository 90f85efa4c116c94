package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadLink(t *testing.T) {
	assert.Equal(t, "http://host/files/abc123/download", DownloadLink("http://host", "abc123"))
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		key  string
		want SortField
	}{
		{"filename", SortByFilename},
		{"FileName", SortByFilename},
		{"uploaddate", SortByUploadedAt},
		{"UploadDate", SortByUploadedAt},
		{"filesize", SortBySize},
		{"contentType", SortByContentType},
		{"TAG", SortByTags},
		{"", SortByFilename},
		{"size", SortByFilename},
		{"filename;", SortByFilename},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSortField(tt.key))
		})
	}
}

func TestParseVisibility(t *testing.T) {
	v, err := ParseVisibility("public")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPublic, v)

	v, err = ParseVisibility(" PRIVATE ")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPrivate, v)

	_, err = ParseVisibility("shared")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNormalizeTags(t *testing.T) {
	in := []string{"b", "A", "a", "C"}
	out := NormalizeTags(in)

	assert.Equal(t, []string{"A", "C", "a", "b"}, out)
	assert.Equal(t, []string{"b", "A", "a", "C"}, in, "input must not be reordered")
	assert.NotNil(t, NormalizeTags(nil))

	assert.Equal(t, []string{"A", "a", "b"}, NormalizeTags([]string{"b", "a", "A", "a", "b"}))
}

func TestSummary(t *testing.T) {
	uploaded := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := &FileRecord{
		BlobID:      "abc123",
		Filename:    "report.pdf",
		Visibility:  VisibilityPrivate,
		Tags:        []string{"a", "b"},
		UploadedAt:  uploaded,
		ContentType: "application/pdf",
		Size:        42,
	}

	s := rec.Summary("http://host")
	assert.Equal(t, "report.pdf", s.Filename)
	assert.Equal(t, VisibilityPrivate, s.Visibility)
	assert.Equal(t, []string{"a", "b"}, s.Tags)
	assert.Equal(t, uploaded, s.UploadedAt)
	assert.Equal(t, "http://host/files/abc123/download", s.DownloadLink)

	s.Tags[0] = "z"
	assert.Equal(t, "a", rec.Tags[0])
}

func TestHasTag(t *testing.T) {
	rec := &FileRecord{Tags: []string{"myTag0", "other"}}
	assert.True(t, rec.HasTag("MYTAG0"))
	assert.True(t, rec.HasTag("mytag0"))
	assert.False(t, rec.HasTag("myTag1"))
}

func TestNewPage(t *testing.T) {
	p := NewPage([]int{1, 2, 3, 4, 5}, 0, PageSize, 10)
	assert.Equal(t, 2, p.TotalPages)
	assert.Equal(t, int64(10), p.TotalElements)

	p = NewPage[int](nil, 3, PageSize, 11)
	assert.Equal(t, 3, p.TotalPages)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}
