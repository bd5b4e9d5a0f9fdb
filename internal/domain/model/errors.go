// errors.go — таксономия ошибок хранилища.
// Бэкенды и хранилища метаданных оборачивают причину через
// fmt.Errorf("%w: ...", model.ErrX), вызывающий код проверяет errors.Is.
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — запись или байты отсутствуют (HTTP 404).
	ErrNotFound = errors.New("не найдено")
	// ErrValidation — некорректный запрос клиента (HTTP 400).
	ErrValidation = errors.New("ошибка валидации")
	// ErrFileTooLarge — файл превышает MAX_FILE_SIZE_BYTES. Частный случай ErrValidation.
	ErrFileTooLarge = fmt.Errorf("%w: файл превышает допустимый размер", ErrValidation)
	// ErrStorageIO — отказ диска или объектного хранилища (HTTP 500).
	ErrStorageIO = errors.New("ошибка хранилища")
	// ErrPersistence — хранилище метаданных недоступно (HTTP 500).
	ErrPersistence = errors.New("ошибка хранилища метаданных")
)
