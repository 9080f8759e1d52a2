package models

import "time"

// TenantSettings holds a tenant's Meta Ads integration settings.
type TenantSettings struct {
	Tenant         string     `json:"tenant"`
	AdAccountID    string     `json:"adAccountId"`
	PixelID        string     `json:"pixelId,omitempty"`
	PageID         string     `json:"pageId,omitempty"`
	AccessToken    string     `json:"-"`
	IsConnected    bool       `json:"isConnected"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}

// Configured reports whether the settings carry what a fetch needs.
func (s *TenantSettings) Configured() bool {
	return s != nil && s.AdAccountID != "" && s.AccessToken != ""
}

// TokenExpired reports whether the access token is expired at now.
// A token with no known expiry never expires.
func (s *TenantSettings) TokenExpired(now time.Time) bool {
	if s == nil || s.TokenExpiresAt == nil {
		return false
	}
	return !s.TokenExpiresAt.After(now)
}
