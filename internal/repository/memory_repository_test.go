package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"filecatalog/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(owner, name string, i int) *domain.FileRecord {
	return &domain.FileRecord{
		BlobID:        uuid.NewString(),
		Owner:         owner,
		Filename:      name,
		Visibility:    domain.VisibilityPublic,
		Tags:          []string{fmt.Sprintf("myTag%d", i)},
		UploadedAt:    time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		ContentType:   "text/plain",
		Size:          int64(100 - i),
		ContentDigest: fmt.Sprintf("digest-%s-%d", owner, i),
	}
}

func TestMemoryFileRepository_UniqueConstraints(t *testing.T) {
	repo := NewMemoryFileRepository()
	ctx := context.Background()

	first := newRecord("alice", "a.txt", 0)
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	sameName := newRecord("alice", "a.txt", 1)
	assert.ErrorIs(t, repo.Create(ctx, sameName), domain.ErrConflict)

	sameDigest := newRecord("alice", "b.txt", 2)
	sameDigest.ContentDigest = first.ContentDigest
	assert.ErrorIs(t, repo.Create(ctx, sameDigest), domain.ErrConflict)

	sameBlob := newRecord("bob", "c.txt", 3)
	sameBlob.BlobID = first.BlobID
	assert.ErrorIs(t, repo.Create(ctx, sameBlob), domain.ErrConflict)

	otherOwner := newRecord("bob", "a.txt", 0)
	otherOwner.ContentDigest = first.ContentDigest
	assert.NoError(t, repo.Create(ctx, otherOwner))
}

func TestMemoryFileRepository_Lookups(t *testing.T) {
	repo := NewMemoryFileRepository()
	ctx := context.Background()

	rec := newRecord("alice", "a.txt", 0)
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByOwnerAndFilename(ctx, "alice", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	got, err = repo.GetByBlobID(ctx, rec.BlobID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Filename)

	_, err = repo.GetByBlobID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := repo.ExistsByOwnerAndFilename(ctx, "alice", "a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByOwnerAndDigest(ctx, "bob", rec.ContentDigest)
	require.NoError(t, err)
	assert.False(t, ok)

	got.Tags[0] = "mutated"
	again, err := repo.GetByBlobID(ctx, rec.BlobID)
	require.NoError(t, err)
	assert.Equal(t, "myTag0", again.Tags[0])
}

func TestMemoryFileRepository_ListPaginationAndSort(t *testing.T) {
	repo := NewMemoryFileRepository()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.Create(ctx, newRecord("alice", fmt.Sprintf("file%d.txt", i), i)))
	}
	private := newRecord("alice", "secret.txt", 42)
	private.Visibility = domain.VisibilityPrivate
	require.NoError(t, repo.Create(ctx, private))

	public := domain.VisibilityPublic
	q := domain.ListQuery{Visibility: &public, SortBy: domain.SortByFilename}

	page0, total, err := repo.List(ctx, q, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	require.Len(t, page0, 5)
	assert.Equal(t, "file0.txt", page0[0].Filename)

	page1, _, err := repo.List(ctx, q, 5, 5)
	require.NoError(t, err)
	require.Len(t, page1, 5)
	assert.Equal(t, "file5.txt", page1[0].Filename)

	page2, _, err := repo.List(ctx, q, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, page2)

	q.SortBy = domain.SortBySize
	bySize, _, err := repo.List(ctx, q, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, "file9.txt", bySize[0].Filename)

	owned, total, err := repo.List(ctx, domain.ListQuery{Owner: "alice"}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	assert.Len(t, owned, 11)

	_, _, err = repo.List(ctx, q, 5, -5)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMemoryFileRepository_TagFilterIgnoresCase(t *testing.T) {
	repo := NewMemoryFileRepository()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.Create(ctx, newRecord("alice", fmt.Sprintf("file%d.txt", i), i)))
	}

	items, total, err := repo.List(ctx, domain.ListQuery{Owner: "alice", Tag: "MYTAG3"}, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "file3.txt", items[0].Filename)
}

func TestMemoryFileRepository_UpdateAndDelete(t *testing.T) {
	repo := NewMemoryFileRepository()
	ctx := context.Background()

	a := newRecord("alice", "a.txt", 0)
	b := newRecord("alice", "b.txt", 1)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	assert.ErrorIs(t, repo.UpdateFilename(ctx, a.ID, "b.txt"), domain.ErrConflict)
	require.NoError(t, repo.UpdateFilename(ctx, a.ID, "renamed.txt"))

	got, err := repo.GetByBlobID(ctx, a.BlobID)
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", got.Filename)

	assert.ErrorIs(t, repo.UpdateFilename(ctx, uuid.New(), "x"), domain.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), domain.ErrNotFound)
}

func TestCompareTags(t *testing.T) {
	assert.Equal(t, 0, compareTags([]string{"a"}, []string{"a"}))
	assert.Equal(t, -1, compareTags([]string{"a"}, []string{"a", "b"}))
	assert.Equal(t, 1, compareTags([]string{"b"}, []string{"a", "z"}))
	assert.Equal(t, -1, compareTags(nil, []string{"a"}))
}
