package service

import (
	"errors"
	"fmt"

	repo "taskFlow/internal/repository"
)

// здесь происходит проверка ошибок бизнес-логики

const CodeNotFound = "NOT_FOUND"
const CodeValidation = "VALIDATION_ERROR"
const CodeUnavailable = "STORE_UNAVAILABLE"
const CodePermission = "PERMISSION_DENIED"

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func NewNotFound(taskID string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("задача %s не найдена", taskID),
		Details: map[string]any{
			"id": taskID,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

// mapRepoError переводит ошибку хранилища в бизнес-ошибку.
func mapRepoError(err error, taskID string) *BusinessError {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return NewNotFound(taskID)
	case errors.Is(err, repo.ErrPermissionDenied):
		return &BusinessError{
			Code:    CodePermission,
			Message: "доступ к чужим данным запрещён",
			Err:     err,
		}
	default:
		return &BusinessError{
			Code:    CodeUnavailable,
			Message: "хранилище недоступно",
			Err:     err,
		}
	}
}
