package insights

import (
	"time"

	"github.com/radiusdt/metasync/internal/models"
)

// ParseRange parses YYYY-MM-DD bounds and checks that since <= until.
func ParseRange(since, until string) (time.Time, time.Time, error) {
	if since == "" || until == "" {
		return time.Time{}, time.Time{}, validationError(CodeInvalidDate, "since and until are required")
	}
	s, err := models.ParseDay(since)
	if err != nil {
		return time.Time{}, time.Time{}, validationError(CodeInvalidDate, "%v", err)
	}
	u, err := models.ParseDay(until)
	if err != nil {
		return time.Time{}, time.Time{}, validationError(CodeInvalidDate, "%v", err)
	}
	if s.After(u) {
		return time.Time{}, time.Time{}, validationError(CodeInvalidRange, "since %s is after until %s", since, until)
	}
	return s, u, nil
}

func validateRange(tenant string, since, until time.Time) error {
	if tenant == "" {
		return validationError(CodeMissingTenant, "tenant is required")
	}
	if since.IsZero() || until.IsZero() {
		return validationError(CodeInvalidDate, "since and until are required")
	}
	if models.DayUTC(since).After(models.DayUTC(until)) {
		return validationError(CodeInvalidRange, "since %s is after until %s", models.FormatDay(since), models.FormatDay(until))
	}
	return nil
}
