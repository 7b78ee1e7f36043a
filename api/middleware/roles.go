package middleware

import (
	"net/http"

	"github.com/seoulmarket/marketplace-backend/api/responses"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
)

// RequireRole admits only principals holding one of the listed roles.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	allowed := make(map[enums.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[enums.UserRole(RoleFromContext(r.Context()))]; !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required").
					WithDetails(map[string]any{"reason": "ROLE_NOT_PERMITTED"}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates the administrator routes.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(logg, enums.UserRoleAdmin)
}

// RequireSeller admits pending and active sellers.
func RequireSeller(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(logg, enums.UserRoleSellerPending, enums.UserRoleSellerActive)
}
