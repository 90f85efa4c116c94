package domain

import "errors"

// Классы ошибок ядра. Проверяются через errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("file already exists")
	ErrNotFound   = errors.New("file not found")
	ErrStorage    = errors.New("storage operation failed")
)
