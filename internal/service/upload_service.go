package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"filecatalog/internal/blob"
	"filecatalog/internal/digest"
	"filecatalog/internal/domain"
	"filecatalog/internal/mimesniff"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// compensateTimeout ограничивает компенсирующее удаление,
// которое выполняется даже после отмены запроса
const compensateTimeout = 30 * time.Second

// UploadState обозначает шаг саги загрузки
type UploadState string

const (
	StateWriting    UploadState = "writing"
	StateHashing    UploadState = "hashing"
	StateChecking   UploadState = "checking"
	StateCommitted  UploadState = "committed"
	StateConflicted UploadState = "conflicted"
	StateFailed     UploadState = "failed"
)

// UploadRequest содержит входные данные загрузки
type UploadRequest struct {
	Owner           string
	Content         io.Reader
	Filename        string
	Visibility      domain.Visibility
	Tags            []string
	ContentTypeHint string
	// Размер, заявленный источником, не перепроверяется
	Size        int64
	BaseAddress string
}

// StateHook получает каждый переход саги загрузки
type StateHook func(blobID string, state UploadState)

// UploadService принимает файлы: пишет blob, считает отпечаток,
// проверяет дубликаты и фиксирует запись либо откатывает blob.
type UploadService struct {
	catalog  FileCatalog
	blobs    blob.Store
	detector mimesniff.Detector
	logger   zerolog.Logger
	now      func() time.Time
	hook     StateHook
}

// UploadOption настраивает UploadService при создании
type UploadOption func(*UploadService)

// WithClock подменяет источник времени uploadedAt
func WithClock(now func() time.Time) UploadOption {
	return func(s *UploadService) { s.now = now }
}

// WithStateHook подписывается на переходы саги
func WithStateHook(hook StateHook) UploadOption {
	return func(s *UploadService) { s.hook = hook }
}

func NewUploadService(
	catalog FileCatalog,
	blobs blob.Store,
	detector mimesniff.Detector,
	logger zerolog.Logger,
	opts ...UploadOption,
) *UploadService {
	s := &UploadService{
		catalog:  catalog,
		blobs:    blobs,
		detector: detector,
		logger:   logger.With().Str("component", "upload_service").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload загружает файл в хранилище.
//
// Поток: Writing -> Hashing -> Checking -> Committed | Conflicted.
// После записи blob'а любая ошибка или конфликт удаляют его.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (summary *domain.FileSummary, err error) {
	defer func() { observe("upload", err) }()

	if err := validateUpload(req); err != nil {
		return nil, err
	}

	content, contentType, err := s.resolveContentType(req)
	if err != nil {
		return nil, err
	}

	saga := &uploadSaga{svc: s, req: req, contentType: contentType}
	record, err := saga.run(ctx, content)
	if err != nil {
		return nil, err
	}

	result := record.Summary(req.BaseAddress)
	return &result, nil
}

func validateUpload(req UploadRequest) error {
	if len(req.Tags) > domain.MaxTags {
		return fmt.Errorf("%w: tag limit exceeded, max %d tags allowed", domain.ErrValidation, domain.MaxTags)
	}
	if req.Owner == "" {
		return fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	if req.Filename == "" {
		return fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	if req.Content == nil {
		return fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	if req.Visibility != domain.VisibilityPublic && req.Visibility != domain.VisibilityPrivate {
		return fmt.Errorf("%w: unknown visibility %q", domain.ErrValidation, req.Visibility)
	}
	if req.Size < 0 {
		return fmt.Errorf("%w: negative size", domain.ErrValidation)
	}
	return nil
}

// resolveContentType берет тип из подсказки, иначе определяет по содержимому.
// Прочитанные детектором байты возвращаются в начало потока.
func (s *UploadService) resolveContentType(req UploadRequest) (io.Reader, string, error) {
	if hint := strings.TrimSpace(req.ContentTypeHint); hint != "" {
		return req.Content, hint, nil
	}

	contentType, replay, err := s.detector.Detect(req.Content)
	if err != nil {
		return nil, "", fmt.Errorf("%w: content type undetermined: %v", domain.ErrValidation, err)
	}
	if contentType == "" {
		return nil, "", fmt.Errorf("%w: content type undetermined", domain.ErrValidation)
	}
	return replay, contentType, nil
}

// uploadSaga хранит состояние одной загрузки
type uploadSaga struct {
	svc         *UploadService
	req         UploadRequest
	contentType string
	blobID      string
	state       UploadState
}

func (u *uploadSaga) transition(state UploadState) {
	u.state = state
	u.svc.logger.Debug().
		Str("owner", u.req.Owner).
		Str("filename", u.req.Filename).
		Str("blob_id", u.blobID).
		Str("state", string(state)).
		Msg("upload state")
	if u.svc.hook != nil {
		u.svc.hook(u.blobID, state)
	}
}

func (u *uploadSaga) run(ctx context.Context, content io.Reader) (*domain.FileRecord, error) {
	u.transition(StateWriting)
	blobID, err := u.svc.blobs.Store(ctx, content, u.req.Filename, u.contentType)
	if err != nil {
		// Компенсировать нечего: blob не записан
		u.transition(StateFailed)
		return nil, fmt.Errorf("%w: failed to store blob: %v", domain.ErrStorage, err)
	}
	u.blobID = blobID

	u.transition(StateHashing)
	contentDigest, err := u.hash(ctx)
	if err != nil {
		return nil, u.fail(ctx, err)
	}

	u.transition(StateChecking)
	conflict, err := u.isDuplicate(ctx, contentDigest)
	if err != nil {
		return nil, u.fail(ctx, err)
	}
	if conflict {
		return nil, u.conflict(ctx)
	}

	record := &domain.FileRecord{
		ID:            uuid.New(),
		BlobID:        blobID,
		Owner:         u.req.Owner,
		Filename:      u.req.Filename,
		Visibility:    u.req.Visibility,
		Tags:          domain.NormalizeTags(u.req.Tags),
		UploadedAt:    u.svc.now().UTC(),
		ContentType:   u.contentType,
		Size:          u.req.Size,
		ContentDigest: contentDigest,
	}

	if err := u.svc.catalog.Create(ctx, record); err != nil {
		// Параллельная загрузка успела раньше: решает уникальный индекс каталога
		if errors.Is(err, domain.ErrConflict) {
			return nil, u.conflict(ctx)
		}
		return nil, u.fail(ctx, err)
	}

	u.transition(StateCommitted)
	u.svc.logger.Info().
		Str("owner", record.Owner).
		Str("filename", record.Filename).
		Str("blob_id", record.BlobID).
		Int64("size", record.Size).
		Str("content_type", record.ContentType).
		Msg("file uploaded")

	return record, nil
}

func (u *uploadSaga) hash(ctx context.Context) (string, error) {
	rc, err := u.svc.blobs.Open(ctx, u.blobID)
	if err != nil {
		return "", fmt.Errorf("failed to reopen blob: %w", err)
	}
	defer rc.Close()

	sum, err := digest.Compute(rc)
	if err != nil {
		return "", err
	}
	return sum, nil
}

func (u *uploadSaga) isDuplicate(ctx context.Context, contentDigest string) (bool, error) {
	nameTaken, err := u.svc.catalog.ExistsByOwnerAndFilename(ctx, u.req.Owner, u.req.Filename)
	if err != nil {
		return false, err
	}
	if nameTaken {
		return true, nil
	}
	return u.svc.catalog.ExistsByOwnerAndDigest(ctx, u.req.Owner, contentDigest)
}

func (u *uploadSaga) conflict(ctx context.Context) error {
	u.transition(StateConflicted)
	u.compensate(ctx)
	return fmt.Errorf("%w: %s", domain.ErrConflict, u.req.Filename)
}

func (u *uploadSaga) fail(ctx context.Context, cause error) error {
	u.transition(StateFailed)
	u.compensate(ctx)
	return fmt.Errorf("%w: %v", domain.ErrStorage, cause)
}

// compensate удаляет записанный blob. Ошибка только логируется:
// вызывающий получает исходную ошибку.
func (u *uploadSaga) compensate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	err := u.svc.blobs.Delete(ctx, u.blobID)
	if err != nil && !errors.Is(err, blob.ErrNotFound) {
		compensationsTotal.WithLabelValues(resultError).Inc()
		u.svc.logger.Error().
			Err(err).
			Str("owner", u.req.Owner).
			Str("filename", u.req.Filename).
			Str("blob_id", u.blobID).
			Msg("failed to delete blob after aborted upload")
		return
	}
	compensationsTotal.WithLabelValues(resultSuccess).Inc()
}
