package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"filecatalog/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SQLSTATE нарушения уникального индекса
const uniqueViolation = "23505"

const fileColumns = `id, blob_id, owner, filename, visibility, tags,
	uploaded_at, content_type, size, content_digest`

// fileRow представляет строку file_records, tags хранятся как text[]
type fileRow struct {
	domain.FileRecord
	Tags pq.StringArray `db:"tags"`
}

func (r fileRow) record() *domain.FileRecord {
	rec := r.FileRecord
	rec.Tags = []string(r.Tags)
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return &rec
}

// FileRepository хранит каталог метаданных файлов в PostgreSQL
type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create вставляет запись. Нарушение уникальности возвращается как ErrConflict.
func (r *FileRepository) Create(ctx context.Context, file *domain.FileRecord) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}

	query := `
        INSERT INTO file_records (id, blob_id, owner, filename, visibility, tags,
            uploaded_at, content_type, size, content_digest)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(
		ctx,
		query,
		file.ID,
		file.BlobID,
		file.Owner,
		file.Filename,
		string(file.Visibility),
		pq.StringArray(file.Tags),
		file.UploadedAt,
		file.ContentType,
		file.Size,
		file.ContentDigest,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
		return fmt.Errorf("failed to create file record: %w", err)
	}

	return nil
}

func (r *FileRepository) getOne(ctx context.Context, where string, args ...any) (*domain.FileRecord, error) {
	var row fileRow
	query := fmt.Sprintf(`SELECT %s FROM file_records WHERE %s LIMIT 1`, fileColumns, where)

	err := r.db.GetContext(ctx, &row, query, args...)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting file record: %w", err)
	}
	return row.record(), nil
}

// GetByOwnerAndFilename ищет запись владельца по имени файла
func (r *FileRepository) GetByOwnerAndFilename(ctx context.Context, owner, filename string) (*domain.FileRecord, error) {
	return r.getOne(ctx, "owner = $1 AND filename = $2", owner, filename)
}

// GetByBlobID ищет запись по идентификатору blob'а
func (r *FileRepository) GetByBlobID(ctx context.Context, blobID string) (*domain.FileRecord, error) {
	return r.getOne(ctx, "blob_id = $1", blobID)
}

func (r *FileRepository) exists(ctx context.Context, where string, args ...any) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM file_records WHERE %s)`, where)

	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("error checking file existence: %w", err)
	}
	return exists, nil
}

func (r *FileRepository) ExistsByOwnerAndFilename(ctx context.Context, owner, filename string) (bool, error) {
	return r.exists(ctx, "owner = $1 AND filename = $2", owner, filename)
}

func (r *FileRepository) ExistsByOwnerAndDigest(ctx context.Context, owner, digest string) (bool, error) {
	return r.exists(ctx, "owner = $1 AND content_digest = $2", owner, digest)
}

// List возвращает страницу записей и общее количество по тем же фильтрам
func (r *FileRepository) List(ctx context.Context, q domain.ListQuery, limit, offset int) ([]domain.FileRecord, int64, error) {
	if limit < 0 || offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative limit or offset", domain.ErrValidation)
	}

	where, args := buildListWhere(q, 1)
	argNum := len(args) + 1

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM file_records %s %s LIMIT $%d OFFSET $%d`,
		fileColumns, where, buildOrderBy(q.SortBy), argNum, argNum+1,
	)

	var rows []fileRow
	if err := r.db.SelectContext(ctx, &rows, dataQuery, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list file records: %w", err)
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM file_records %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count file records: %w", err)
	}

	records := make([]domain.FileRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, *row.record())
	}
	return records, total, nil
}

// UpdateFilename меняет только имя файла
func (r *FileRepository) UpdateFilename(ctx context.Context, id uuid.UUID, newFilename string) error {
	query := `UPDATE file_records SET filename = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, newFilename, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
		return fmt.Errorf("failed to update file name: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Delete удаляет запись каталога
func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM file_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// buildListWhere строит WHERE и аргументы; startArg задает номер первого $-параметра
func buildListWhere(q domain.ListQuery, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if q.Visibility != nil {
		conditions = append(conditions, fmt.Sprintf("visibility = $%d", argNum))
		args = append(args, string(*q.Visibility))
		argNum++
	}

	if q.Owner != "" {
		conditions = append(conditions, fmt.Sprintf("owner = $%d", argNum))
		args = append(args, q.Owner)
		argNum++
	}

	// Тег без учета регистра
	if q.Tag != "" {
		conditions = append(conditions,
			fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE lower(t) = lower($%d))", argNum))
		args = append(args, q.Tag)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// Whitelist столбцов сортировки
var sortColumns = map[domain.SortField]string{
	domain.SortByFilename:    "filename",
	domain.SortByUploadedAt:  "uploaded_at",
	domain.SortBySize:        "size",
	domain.SortByContentType: "content_type",
	domain.SortByTags:        "tags",
}

// buildOrderBy строит ORDER BY; id добавлен для стабильных границ страниц
func buildOrderBy(field domain.SortField) string {
	column, ok := sortColumns[field]
	if !ok {
		column = "filename"
	}
	return fmt.Sprintf("ORDER BY %s ASC, id ASC", column)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
