package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"taskFlow/internal/logger"
	"taskFlow/internal/service"
)

// handleBusinessError переводит бизнес-ошибку сервиса в HTTP-ответ.
// Возвращает true, если ошибка обработана.
func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode))

	responseWithJSON(w, statusCode, map[string]any{
		"error":   businessErr.Code,
		"message": businessErr.Message,
		"details": businessErr.Details,
	})
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodePermission:
		return http.StatusForbidden
	case service.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// respondServiceError - общий выход для ошибок сервиса: сначала пытаемся
// отдать бизнес-ошибку, иначе 500.
func respondServiceError(w http.ResponseWriter, err error, operation string) {
	logger.Error("HTTP: Ошибка Service", err, zap.String("operation", operation))

	if handleBusinessError(w, err) {
		return
	}
	responseWithError(w, http.StatusInternalServerError, err.Error())
}
