package middlewares

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"
)

const (
	authErrorMessage    = "Authentication failed"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// Principal is the caller identified by the auth middleware.
type Principal interface {
	GetSubject() string
}

type key int

var principalKey key

type tokenPrincipal struct {
	subject string
}

func (tp tokenPrincipal) GetSubject() string {
	return tp.subject
}

func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(tokenPrincipal)
	return p, ok
}

// AuthMiddleware verifies HS256 bearer tokens signed with Secret.  Requests
// pass through unauthenticated when Secret is empty.
type AuthMiddleware struct {
	Secret []byte
}

func (amw *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(amw.Secret) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := amw.verify(r.Header.Get(authorizationHeader))
		if err != nil {
			logger.Log.WithFields(logrus.Fields{"error": err}).Debug("Authentication failure")
			http.Error(w, authErrorMessage, http.StatusUnauthorized)
			return
		}

		logger.Log.Debugf("Received request from %v", claims.Subject)

		ctx := context.WithValue(r.Context(), principalKey, tokenPrincipal{subject: claims.Subject})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (amw *AuthMiddleware) verify(header string) (*jwt.StandardClaims, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, errors.New("missing bearer token")
	}

	claims := &jwt.StandardClaims{}

	_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, bearerPrefix), claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return amw.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	return claims, nil
}
