package meta

import (
	"fmt"
	"net/http"
	"time"

	"github.com/radiusdt/metasync/internal/models"
)

// FetchRequest identifies the account and range of an insights query.
// Since and Until are UTC days, both inclusive.
type FetchRequest struct {
	AccountID   string
	PixelID     string
	PageID      string
	AccessToken string
	Since       time.Time
	Until       time.Time
}

// DailyMetrics is one day of a daily insights breakdown.
type DailyMetrics struct {
	Date    time.Time
	Metrics models.DayMetrics
}

// Graph API error codes.
const (
	CodeAPIUnknown       = 1
	CodeAPIService       = 2
	CodeAPITooManyCalls  = 4
	CodeUserTooManyCalls = 17
	CodeRateLimitReached = 32
	CodeInvalidToken     = 190
	CodeAdsTooManyCalls  = 613
)

// APIError is an error reported by the Graph API.
type APIError struct {
	StatusCode int
	Code       int
	Subcode    int
	Type       string
	Message    string
	TraceID    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("meta api error %d (http %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("meta api http %d: %s", e.StatusCode, e.Message)
}

// IsTokenError reports whether the access token was rejected.
func (e *APIError) IsTokenError() bool {
	return e.Code == CodeInvalidToken
}

// Temporary reports whether the call may succeed when retried.
func (e *APIError) Temporary() bool {
	switch e.Code {
	case CodeAPIUnknown, CodeAPIService, CodeAPITooManyCalls, CodeUserTooManyCalls, CodeRateLimitReached, CodeAdsTooManyCalls:
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
