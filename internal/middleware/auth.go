package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"taskFlow/internal/logger"
)

var ErrInvalidToken = errors.New("невалидный токен")

// OwnerClaims - клеймы токена внешнего провайдера идентичности.
// Сами потоки логина и регистрации живут снаружи, здесь только
// проверка предъявленной идентичности.
type OwnerClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// OwnerAuth проверяет, что идентичность запроса совпадает с {ownerID}
// в пути: все данные строго разнесены по владельцам, чужие записи
// читать и менять нельзя.
//
// При enabled=true ожидается Authorization: Bearer <jwt> (HMAC, secret);
// при enabled=false (локальная разработка) владельцем считается
// заголовок X-User-ID.
func OwnerAuth(enabled bool, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID := chi.URLParam(r, "ownerID")
			if ownerID == "" {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := callerIdentity(r, enabled, secret)
			if err != nil {
				logger.Warn("HTTP: Отказ аутентификации",
					zap.Error(err),
					zap.String("client_ip", r.RemoteAddr))
				unauthorized(w, "требуется валидный токен")
				return
			}

			if caller != ownerID {
				logger.Warn("HTTP: Попытка доступа к чужим данным",
					zap.String("caller", caller),
					zap.String("owner", ownerID),
					zap.String("client_ip", r.RemoteAddr))
				forbidden(w, "доступ к чужим данным запрещён")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func callerIdentity(r *http.Request, enabled bool, secret string) (string, error) {
	if !enabled {
		caller := r.Header.Get("X-User-ID")
		if caller == "" {
			return "", errors.New("заголовок X-User-ID не задан")
		}
		return caller, nil
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errors.New("нужен заголовок Authorization: Bearer <token>")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims := &OwnerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.UID == "" {
		return "", ErrInvalidToken
	}

	return claims.UID, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "unauthorized", "message": "` + message + `"}`))
}

func forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error": "PERMISSION_DENIED", "message": "` + message + `"}`))
}
