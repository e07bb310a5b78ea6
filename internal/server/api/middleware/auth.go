// Package middleware holds the HTTP middleware shared by the auth and file
// servers: access-token authentication and request logging.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/api/apierrors"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user id stored by Auth, or "" when the
// request never passed through it.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID returns a context carrying the given user id. Exported for
// handler tests that bypass the middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Auth verifies the bearer access token on every request and stores the
// token subject in the request context. Refresh tokens are rejected here;
// they are only good for the refresh endpoint.
func Auth(tokens *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(common.AuthorizationHeaderName)
			if header == "" {
				apierrors.MissingAuthHeader(w, r)
				return
			}

			info, err := tokens.VerifyKind(header, auth.KindAccess)
			if err != nil {
				switch {
				case errors.Is(err, common.ErrTokenExpired):
					apierrors.TokenExpired(w, r)
				case errors.Is(err, common.ErrWrongTokenKind):
					apierrors.WrongTokenKind(w, r)
				default:
					apierrors.InvalidToken(w, r)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), info.SubjectID)))
		})
	}
}
