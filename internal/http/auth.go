package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
)

// AdminAuth basic-auth guard of the destructive endpoints.
// With no password configured every guarded request is refused with 403.
type AdminAuth struct {
	user     string
	password string
	logger   *zap.Logger
}

func NewAdminAuth(user, password string, logger *zap.Logger) *AdminAuth {
	return &AdminAuth{user: user, password: password, logger: logger}
}

// Configured reports whether deletes can be authorized at all
func (a *AdminAuth) Configured() bool {
	return a.password != ""
}

func (a *AdminAuth) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Configured() {
			writeError(w, http.StatusForbidden, "Admin access is not configured")
			return
		}
		user, password, ok := r.BasicAuth()
		if !ok || !a.matches(user, password) {
			a.logger.Warn("Admin authorization failed",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", RequestIDFrom(r.Context())),
			)
			w.Header().Set("WWW-Authenticate", `Basic realm="revit-qc admin", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), actorKey, user)))
	}
}

func (a *AdminAuth) matches(user, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

func actorFrom(ctx context.Context) string {
	user, _ := ctx.Value(actorKey).(string)
	return user
}
