package models

import "regexp"

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9_]{1,48}$`)

// ValidTenantID reports whether id can name a tenant. Tenant IDs become
// part of database names so they are restricted to [a-z0-9_].
func ValidTenantID(id string) bool {
	return tenantIDPattern.MatchString(id)
}
