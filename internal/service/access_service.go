package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"filecatalog/internal/blob"
	"filecatalog/internal/domain"

	"github.com/rs/zerolog"
)

// AccessService читает каталог: постраничные списки и скачивание
type AccessService struct {
	catalog FileCatalog
	blobs   blob.Store
	logger  zerolog.Logger
}

func NewAccessService(catalog FileCatalog, blobs blob.Store, logger zerolog.Logger) *AccessService {
	return &AccessService{
		catalog: catalog,
		blobs:   blobs,
		logger:  logger.With().Str("component", "access_service").Logger(),
	}
}

// ListPublic возвращает страницу публичных файлов
func (s *AccessService) ListPublic(
	ctx context.Context,
	page int,
	sortBy, tag, baseAddress string,
) (result *domain.Page[domain.FileSummary], err error) {
	defer func() { observe("list_public", err) }()

	public := domain.VisibilityPublic
	return s.list(ctx, domain.ListQuery{
		Visibility: &public,
		Tag:        tag,
		SortBy:     domain.ParseSortField(sortBy),
	}, page, baseAddress)
}

// ListForOwner возвращает страницу всех файлов владельца, включая приватные
func (s *AccessService) ListForOwner(
	ctx context.Context,
	owner string,
	page int,
	sortBy, tag, baseAddress string,
) (result *domain.Page[domain.FileSummary], err error) {
	defer func() { observe("list_owner", err) }()

	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	return s.list(ctx, domain.ListQuery{
		Owner:  owner,
		Tag:    tag,
		SortBy: domain.ParseSortField(sortBy),
	}, page, baseAddress)
}

func (s *AccessService) list(
	ctx context.Context,
	q domain.ListQuery,
	page int,
	baseAddress string,
) (*domain.Page[domain.FileSummary], error) {
	if page < 0 {
		return nil, fmt.Errorf("%w: page must not be negative", domain.ErrValidation)
	}
	// Смещение page*PageSize должно помещаться в int
	if page > math.MaxInt/domain.PageSize {
		return nil, fmt.Errorf("%w: page %d out of range", domain.ErrValidation, page)
	}

	records, total, err := s.catalog.List(ctx, q, domain.PageSize, page*domain.PageSize)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.FileSummary, 0, len(records))
	for i := range records {
		summaries = append(summaries, records[i].Summary(baseAddress))
	}

	result := domain.NewPage(summaries, page, domain.PageSize, total)
	return &result, nil
}

// Download находит файл по идентификатору blob'а и открывает его содержимое.
// Вызывающий обязан закрыть Content.
func (s *AccessService) Download(ctx context.Context, blobID string) (result *domain.FileDownload, err error) {
	defer func() { observe("download", err) }()

	record, err := s.catalog.GetByBlobID(ctx, blobID)
	if err != nil {
		return nil, err
	}

	content, err := s.blobs.Open(ctx, blobID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			s.logger.Warn().Str("blob_id", blobID).Msg("catalog record points to a missing blob")
			return nil, fmt.Errorf("%w: blob %s", domain.ErrNotFound, blobID)
		}
		return nil, fmt.Errorf("%w: failed to open blob %s: %v", domain.ErrStorage, blobID, err)
	}

	return &domain.FileDownload{File: record, Content: content}, nil
}
