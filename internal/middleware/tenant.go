package middleware

import (
	"net/http"

	"github.com/radiusdt/metasync/internal/models"
)

// TenantHeader names the tenant of an API request.
const TenantHeader = "X-Tenant-ID"

// Tenant requires a valid tenant header and stores it in the context.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := r.Header.Get(TenantHeader)
		if tenant == "" {
			WriteError(w, http.StatusBadRequest, "MISSING_TENANT", TenantHeader+" header is required")
			return
		}
		if !models.ValidTenantID(tenant) {
			WriteError(w, http.StatusBadRequest, "INVALID_TENANT", "invalid tenant id")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenant)))
	})
}
