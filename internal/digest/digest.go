// Package digest вычисляет отпечаток содержимого файла для поиска дубликатов.
package digest

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Размер буфера чтения, память не зависит от размера файла
const bufferSize = 32 * 1024

// Compute читает поток фиксированными блоками и возвращает hex BLAKE3-256
// всего содержимого.
func Compute(r io.Reader) (string, error) {
	hasher := blake3.New()
	buf := make([]byte, bufferSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read content for digest: %w", err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
