// Package middleware содержит HTTP middleware координатора обменов.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const actorIDKey contextKey = "actorID"

const (
	authCookieName = "actor_token"
	authCookieTTL  = 365 * 24 * time.Hour
)

// AuthMiddleware выполняет проверку подлинности участника (воркера или
// админа) по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет cookie и добавляет идентификатор участника в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		actorID, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), actorIDKey, actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie устанавливает cookie для указанного идентификатора участника.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, actorID int64) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    a.signActorID(strconv.FormatInt(actorID, 10)),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AuthMiddleware) signActorID(idStr string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(idStr))
	return idStr + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (int64, bool) {
	idStr, signature, found := strings.Cut(cookieValue, ".")
	if !found {
		return 0, false
	}

	expected := a.signActorID(idStr)
	_, expectedSig, _ := strings.Cut(expected, ".")

	if !hmac.Equal([]byte(signature), []byte(expectedSig)) {
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// GetActorIDFromContext извлекает идентификатор участника из контекста запроса.
func GetActorIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorIDKey).(int64)
	return id, ok
}
