package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// RequireRoles ensures the caller holds one of the allowed roles. With no roles it only
// requires authentication.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok || user == nil {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[user.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "user role "+string(user.Role)+" is not authorized to access this route")
		}
		return c.Next()
	}
}

// RequireAuthority allows any issue-handling role.
func RequireAuthority() fiber.Handler {
	return RequireRoles(domain.AuthorityRoles...)
}

// RequireAnyRole ensures caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return RequireRoles()
}
