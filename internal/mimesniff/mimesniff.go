// Package mimesniff определяет MIME-тип по первым байтам потока.
package mimesniff

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// Сколько байт читается для определения типа
const sniffLen = 3072

// Detector определяет тип содержимого потока.
// Возвращает тип (может быть пустым) и поток, который отдает все исходные байты.
type Detector interface {
	Detect(r io.Reader) (string, io.Reader, error)
}

// MimetypeDetector определяет тип по сигнатурам gabriel-vasile/mimetype
type MimetypeDetector struct{}

func NewDetector() *MimetypeDetector {
	return &MimetypeDetector{}
}

// Detect читает заголовок потока и возвращает его обратно перед остатком потока
func (d *MimetypeDetector) Detect(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("failed to read content head: %w", err)
	}
	head = head[:n]

	replay := io.MultiReader(bytes.NewReader(head), r)
	if n == 0 {
		return "", replay, nil
	}

	return mimetype.Detect(head).String(), replay, nil
}
