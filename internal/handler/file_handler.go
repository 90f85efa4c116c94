package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"filecatalog/internal/domain"
	"filecatalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Сколько формы держать в памяти, остальное уходит во временные файлы
const multipartMemory = 32 << 20

// Uploader принимает файлы
type Uploader interface {
	Upload(ctx context.Context, req service.UploadRequest) (*domain.FileSummary, error)
}

// Modifier удаляет и переименовывает файлы
type Modifier interface {
	Delete(ctx context.Context, owner, filename string) error
	Rename(ctx context.Context, owner, filename, newFilename string) error
}

// Accessor читает каталог
type Accessor interface {
	ListPublic(ctx context.Context, page int, sortBy, tag, baseAddress string) (*domain.Page[domain.FileSummary], error)
	ListForOwner(ctx context.Context, owner string, page int, sortBy, tag, baseAddress string) (*domain.Page[domain.FileSummary], error)
	Download(ctx context.Context, blobID string) (*domain.FileDownload, error)
}

type FileHandler struct {
	uploader      Uploader
	modifier      Modifier
	accessor      Accessor
	baseURL       string
	maxUploadSize int64
	logger        zerolog.Logger
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewFileHandler(
	uploader Uploader,
	modifier Modifier,
	accessor Accessor,
	baseURL string,
	maxUploadSize int64,
	logger zerolog.Logger,
) *FileHandler {
	return &FileHandler{
		uploader:      uploader,
		modifier:      modifier,
		accessor:      accessor,
		baseURL:       strings.TrimRight(baseURL, "/"),
		maxUploadSize: maxUploadSize,
		logger:        logger.With().Str("component", "file_handler").Logger(),
	}
}

// baseAddress возвращает адрес сервиса для ссылок на скачивание.
// Берется из конфигурации, иначе из запроса.
func (h *FileHandler) baseAddress(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// UploadFile принимает multipart-форму: user, file, visibility, tags
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: failed to parse form: %v", domain.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: file is required", domain.ErrValidation))
		return
	}
	defer file.Close()

	visibility, err := domain.ParseVisibility(r.FormValue("visibility"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	summary, err := h.uploader.Upload(r.Context(), service.UploadRequest{
		Owner:           r.FormValue("user"),
		Content:         file,
		Filename:        header.Filename,
		Visibility:      visibility,
		Tags:            parseTags(r.MultipartForm.Value["tags"]),
		ContentTypeHint: header.Header.Get("Content-Type"),
		Size:            header.Size,
		BaseAddress:     h.baseAddress(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// parseTags принимает теги повторяющимися полями и/или через запятую
func parseTags(values []string) []string {
	var tags []string
	for _, value := range values {
		for _, tag := range strings.Split(value, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// DownloadFile отдает содержимое по идентификатору blob'а
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	download, err := h.accessor.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer download.Content.Close()

	file := download.File

	// Подготавливаем имя файла для Content-Disposition
	encodedFileName := url.PathEscape(file.Filename)
	asciiName := strings.ReplaceAll(file.Filename, `"`, `\"`)
	contentDisposition := fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName, encodedFileName)

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, 32*1024) // 32KB буфер
	written, err := io.CopyBuffer(w, download.Content, buf)
	if err != nil {
		// Заголовки уже отправлены, остается только залогировать
		h.logger.Error().
			Err(err).
			Str("blob_id", file.BlobID).
			Int64("written", written).
			Msg("download interrupted")
	}
}

// DeleteFile удаляет файл владельца по имени
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	user, filename := query.Get("user"), query.Get("filename")
	if user == "" || filename == "" {
		h.writeError(w, r, fmt.Errorf("%w: user and filename are required", domain.ErrValidation))
		return
	}

	if err := h.modifier.Delete(r.Context(), user, filename); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "File deleted successfully"})
}

// RenameFile меняет имя файла владельца
func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	user, filename := query.Get("user"), query.Get("filename")
	if user == "" || filename == "" {
		h.writeError(w, r, fmt.Errorf("%w: user and filename are required", domain.ErrValidation))
		return
	}

	if err := h.modifier.Rename(r.Context(), user, filename, query.Get("newFilename")); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "File renamed successfully"})
}

// ListPublicFiles возвращает страницу публичных файлов
func (h *FileHandler) ListPublicFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := parsePage(query.Get("page"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.accessor.ListPublic(r.Context(), page, query.Get("sortBy"), query.Get("filterByTag"), h.baseAddress(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListUserFiles возвращает страницу файлов владельца
func (h *FileHandler) ListUserFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := parsePage(query.Get("page"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.accessor.ListForOwner(
		r.Context(),
		query.Get("user"),
		page,
		query.Get("sortBy"),
		query.Get("filterByTag"),
		h.baseAddress(r),
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parsePage(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid page %q", domain.ErrValidation, raw)
	}
	return page, nil
}
