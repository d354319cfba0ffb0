package history

import "errors"

// Ошибки хранилища истории.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")
)
