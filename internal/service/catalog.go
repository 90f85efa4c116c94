package service

import (
	"context"

	"filecatalog/internal/domain"

	"github.com/google/uuid"
)

// FileCatalog описывает каталог метаданных, которым пользуются сервисы.
// Реализации: repository.FileRepository (PostgreSQL) и repository.MemoryFileRepository.
type FileCatalog interface {
	Create(ctx context.Context, file *domain.FileRecord) error
	GetByOwnerAndFilename(ctx context.Context, owner, filename string) (*domain.FileRecord, error)
	GetByBlobID(ctx context.Context, blobID string) (*domain.FileRecord, error)
	ExistsByOwnerAndFilename(ctx context.Context, owner, filename string) (bool, error)
	ExistsByOwnerAndDigest(ctx context.Context, owner, digest string) (bool, error)
	List(ctx context.Context, q domain.ListQuery, limit, offset int) ([]domain.FileRecord, int64, error)
	UpdateFilename(ctx context.Context, id uuid.UUID, newFilename string) error
	Delete(ctx context.Context, id uuid.UUID) error
}
