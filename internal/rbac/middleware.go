package rbac

import (
	"net/http"

	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole admits callers holding one of allowed. super_admin always
// passes; roles this service does not know are always denied.
// A 403 body lists the roles that would have been accepted.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	accepted := make([]string, 0, len(allowed)+1)
	for _, r := range allowed {
		if !IsKnownRole(r) {
			continue
		}
		allowedSet[r] = struct{}{}
		accepted = append(accepted, r)
	}
	accepted = append(accepted, RoleSuperAdmin)

	return func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil || id.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}

		_, ok := allowedSet[id.Role]
		if IsSuperAdmin(id.Role) || ok {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":          "forbidden",
			"required_roles": accepted,
		})
	}
}
