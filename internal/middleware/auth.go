package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName — имя cookie с токеном сессии.
const CookieName = "auth_token"

// SessionTTL — время жизни сессии API.
const SessionTTL = 12 * time.Hour

const issuer = "notesd"

type ctxKey struct{}

// Claims — содержимое токена сессии.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// BuildToken подписывает токен сессии секретом (HS256).
func BuildToken(sessionID, secret string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken проверяет подпись и срок действия, возвращает id сессии.
func ParseToken(tokenString, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", errors.New("invalid token")
	}
	return claims.SessionID, nil
}

// SetLoginCookie выдаёт cookie сессии.
func SetLoginCookie(w http.ResponseWriter, sessionID, secret string) error {
	token, err := BuildToken(sessionID, secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(SessionTTL),
	})
	return nil
}

// WithAuth кладёт id сессии в контекст, если cookie валидна.
// Без cookie запрос проходит анонимно: решение принимает хендлер.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(CookieName)
			if err == nil && c.Value != "" {
				if sid, err := ParseToken(c.Value, secret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, sid))
				} else if logger != nil {
					logger.Debugw("invalid session token", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionFromContext возвращает id сессии, установленный WithAuth.
func GetSessionFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(ctxKey{}).(string)
	return sid, ok && sid != ""
}
