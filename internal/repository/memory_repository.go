package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"filecatalog/internal/domain"

	"github.com/google/uuid"
)

// MemoryFileRepository хранит каталог в памяти процесса с теми же
// ограничениями уникальности, что и схема PostgreSQL.
type MemoryFileRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]domain.FileRecord
}

func NewMemoryFileRepository() *MemoryFileRepository {
	return &MemoryFileRepository{records: make(map[uuid.UUID]domain.FileRecord)}
}

func cloneRecord(rec domain.FileRecord) domain.FileRecord {
	tags := make([]string, len(rec.Tags))
	copy(tags, rec.Tags)
	rec.Tags = tags
	return rec
}

// conflictLocked проверяет уникальные ключи; вызывается под блокировкой
func (m *MemoryFileRepository) conflictLocked(rec domain.FileRecord) error {
	for id, existing := range m.records {
		if id == rec.ID {
			continue
		}
		switch {
		case existing.BlobID == rec.BlobID:
			return fmt.Errorf("%w: blob %s already referenced", domain.ErrConflict, rec.BlobID)
		case existing.Owner == rec.Owner && existing.Filename == rec.Filename:
			return fmt.Errorf("%w: %s/%s", domain.ErrConflict, rec.Owner, rec.Filename)
		case existing.Owner == rec.Owner && existing.ContentDigest == rec.ContentDigest:
			return fmt.Errorf("%w: duplicate content for %s", domain.ErrConflict, rec.Owner)
		}
	}
	return nil
}

func (m *MemoryFileRepository) Create(ctx context.Context, file *domain.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	if _, ok := m.records[file.ID]; ok {
		return fmt.Errorf("%w: record %s", domain.ErrConflict, file.ID)
	}
	if err := m.conflictLocked(*file); err != nil {
		return err
	}

	m.records[file.ID] = cloneRecord(*file)
	return nil
}

func (m *MemoryFileRepository) find(match func(domain.FileRecord) bool) (*domain.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if match(rec) {
			found := cloneRecord(rec)
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryFileRepository) GetByOwnerAndFilename(ctx context.Context, owner, filename string) (*domain.FileRecord, error) {
	return m.find(func(r domain.FileRecord) bool { return r.Owner == owner && r.Filename == filename })
}

func (m *MemoryFileRepository) GetByBlobID(ctx context.Context, blobID string) (*domain.FileRecord, error) {
	return m.find(func(r domain.FileRecord) bool { return r.BlobID == blobID })
}

func (m *MemoryFileRepository) ExistsByOwnerAndFilename(ctx context.Context, owner, filename string) (bool, error) {
	_, err := m.GetByOwnerAndFilename(ctx, owner, filename)
	return err == nil, nil
}

func (m *MemoryFileRepository) ExistsByOwnerAndDigest(ctx context.Context, owner, digest string) (bool, error) {
	_, err := m.find(func(r domain.FileRecord) bool { return r.Owner == owner && r.ContentDigest == digest })
	return err == nil, nil
}

func (m *MemoryFileRepository) List(ctx context.Context, q domain.ListQuery, limit, offset int) ([]domain.FileRecord, int64, error) {
	if limit < 0 || offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative limit or offset", domain.ErrValidation)
	}

	m.mu.RLock()
	var matched []domain.FileRecord
	for _, rec := range m.records {
		if q.Visibility != nil && rec.Visibility != *q.Visibility {
			continue
		}
		if q.Owner != "" && rec.Owner != q.Owner {
			continue
		}
		if q.Tag != "" && !rec.HasTag(q.Tag) {
			continue
		}
		matched = append(matched, cloneRecord(rec))
	}
	m.mu.RUnlock()

	less := lessFunc(q.SortBy)
	sort.Slice(matched, func(i, j int) bool {
		if c := less(matched[i], matched[j]); c != 0 {
			return c < 0
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []domain.FileRecord{}, total, nil
	}
	end := offset + limit
	if end > len(matched) || end < offset {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *MemoryFileRepository) UpdateFilename(ctx context.Context, id uuid.UUID, newFilename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Filename = newFilename
	if err := m.conflictLocked(rec); err != nil {
		return err
	}
	m.records[id] = rec
	return nil
}

func (m *MemoryFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// lessFunc возвращает сравнение по полю сортировки (-1, 0, 1)
func lessFunc(field domain.SortField) func(a, b domain.FileRecord) int {
	switch field {
	case domain.SortByUploadedAt:
		return func(a, b domain.FileRecord) int { return a.UploadedAt.Compare(b.UploadedAt) }
	case domain.SortBySize:
		return func(a, b domain.FileRecord) int {
			switch {
			case a.Size < b.Size:
				return -1
			case a.Size > b.Size:
				return 1
			}
			return 0
		}
	case domain.SortByContentType:
		return func(a, b domain.FileRecord) int { return strings.Compare(a.ContentType, b.ContentType) }
	case domain.SortByTags:
		return func(a, b domain.FileRecord) int { return compareTags(a.Tags, b.Tags) }
	default:
		return func(a, b domain.FileRecord) int { return strings.Compare(a.Filename, b.Filename) }
	}
}

// compareTags сравнивает массивы поэлементно, как text[] в PostgreSQL
func compareTags(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
