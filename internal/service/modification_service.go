package service

import (
	"context"
	"errors"
	"fmt"

	"filecatalog/internal/blob"
	"filecatalog/internal/domain"

	"github.com/rs/zerolog"
)

// ModificationService выполняет удаление и переименование файлов
type ModificationService struct {
	catalog FileCatalog
	blobs   blob.Store
	logger  zerolog.Logger
}

func NewModificationService(catalog FileCatalog, blobs blob.Store, logger zerolog.Logger) *ModificationService {
	return &ModificationService{
		catalog: catalog,
		blobs:   blobs,
		logger:  logger.With().Str("component", "modification_service").Logger(),
	}
}

// Delete удаляет файл владельца: сначала blob, затем запись каталога.
// Если blob удалить не удалось, запись остается на месте.
func (s *ModificationService) Delete(ctx context.Context, owner, filename string) (err error) {
	defer func() { observe("delete", err) }()

	record, err := s.catalog.GetByOwnerAndFilename(ctx, owner, filename)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, record.BlobID); err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			return fmt.Errorf("%w: failed to delete blob %s: %v", domain.ErrStorage, record.BlobID, err)
		}
		s.logger.Warn().
			Str("owner", owner).
			Str("filename", filename).
			Str("blob_id", record.BlobID).
			Msg("blob already missing, removing dangling record")
	}

	if err := s.catalog.Delete(ctx, record.ID); err != nil {
		return err
	}

	s.logger.Info().
		Str("owner", owner).
		Str("filename", filename).
		Str("blob_id", record.BlobID).
		Msg("file deleted")
	return nil
}

// Rename меняет только имя файла. Имя (owner, newFilename) должно быть свободно.
func (s *ModificationService) Rename(ctx context.Context, owner, filename, newFilename string) (err error) {
	defer func() { observe("rename", err) }()

	if newFilename == "" {
		return fmt.Errorf("%w: new filename is required", domain.ErrValidation)
	}

	record, err := s.catalog.GetByOwnerAndFilename(ctx, owner, filename)
	if err != nil {
		return err
	}

	if newFilename == filename {
		return nil
	}

	taken, err := s.catalog.ExistsByOwnerAndFilename(ctx, owner, newFilename)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", domain.ErrConflict, newFilename)
	}

	// Уникальный индекс каталога остается последней проверкой при гонке
	if err := s.catalog.UpdateFilename(ctx, record.ID, newFilename); err != nil {
		return err
	}

	s.logger.Info().
		Str("owner", owner).
		Str("filename", filename).
		Str("new_filename", newFilename).
		Msg("file renamed")
	return nil
}
