// Package blob содержит адаптеры хранилища содержимого файлов.
//
// Хранилище непрозрачно: оно принимает поток, возвращает идентификатор
// и по этому идентификатору отдает или удаляет содержимое.
package blob

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound  = errors.New("blob not found")
	ErrInvalidID = errors.New("invalid blob id")
)

// Store определяет интерфейс хранилища blob'ов
type Store interface {
	// Store сохраняет поток целиком и возвращает идентификатор blob'а
	Store(ctx context.Context, r io.Reader, name, contentType string) (string, error)
	// Open открывает blob на чтение, ErrNotFound если его нет
	Open(ctx context.Context, id string) (io.ReadCloser, error)
	// Delete удаляет blob, ErrNotFound если его нет
	Delete(ctx context.Context, id string) error
}

// ctxReader прерывает чтение при отмене контекста
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
