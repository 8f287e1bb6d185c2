package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/storefront/internal/model"
)

// AdminChecker は識別情報が管理者かを判定するインターフェース。
// admin.Authorizerが満たす。
type AdminChecker interface {
	IsAdmin(identity *model.Identity) bool
}

// NewRequireAdminMiddleware は管理者以外のリクエストを拒否するミドルウェアを返す。
// 未ログインは401、管理者でなければ403を返す。
func NewRequireAdminMiddleware(checker AdminChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
				return
			}
			if !checker.IsAdmin(identity) {
				slog.Warn("admin access denied",
					slog.String("user_id", identity.UserID),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
