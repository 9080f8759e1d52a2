package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/radiusdt/metasync/internal/config"
	"github.com/radiusdt/metasync/internal/metrics"
	"github.com/radiusdt/metasync/internal/models"
	"go.uber.org/zap"
)

const (
	insightsFields = "spend,clicks,impressions,actions,action_values"
	maxPages       = 50
	maxBodyBytes   = 8 << 20
)

// ErrTooManyPages is returned when a response is still paged after maxPages.
var ErrTooManyPages = fmt.Errorf("insights response exceeded %d pages", maxPages)

// Client queries account level insights from the Meta Graph API.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
	clock      clock.Clock
	attempts   int
	delay      time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a Graph API client.
func NewClient(cfg config.MetaConfig, clk clock.Clock, logger *zap.Logger, m *metrics.Metrics) *Client {
	if clk == nil {
		clk = clock.WallClock
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		version:    cfg.APIVersion,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		clock:      clk,
		attempts:   attempts,
		delay:      delay,
		logger:     logger.Named("meta"),
		metrics:    m,
	}
}

// Fetch returns the totals of the whole range as one record.
func (c *Client) Fetch(ctx context.Context, req FetchRequest) (models.DayMetrics, error) {
	start := c.clock.Now()
	rows, err := c.insights(ctx, req, false)
	c.metrics.RecordFetch("range", c.clock.Now().Sub(start), err)
	if err != nil {
		return models.DayMetrics{}, err
	}

	var total models.DayMetrics
	for _, r := range rows {
		total = total.Add(r.toMetrics(req))
	}
	return total.Derive(), nil
}

// FetchDaily returns one record per day that had delivery, ascending.
// Days without delivery are returned as zero records so callers can
// cache them.
func (c *Client) FetchDaily(ctx context.Context, req FetchRequest) ([]DailyMetrics, error) {
	start := c.clock.Now()
	rows, err := c.insights(ctx, req, true)
	c.metrics.RecordFetch("daily", c.clock.Now().Sub(start), err)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]models.DayMetrics, len(rows))
	for _, r := range rows {
		key := r.DateStart
		byDay[key] = byDay[key].Add(r.toMetrics(req))
	}

	days := models.DaysInRange(req.Since, req.Until)
	out := make([]DailyMetrics, 0, len(days))
	for _, d := range days {
		out = append(out, DailyMetrics{Date: d, Metrics: byDay[models.FormatDay(d)].Derive()})
	}
	return out, nil
}

func (c *Client) insights(ctx context.Context, req FetchRequest, daily bool) ([]insightsRow, error) {
	if req.AccountID == "" || req.AccessToken == "" {
		return nil, errors.New("account id and access token are required")
	}

	next := c.insightsURL(req, daily)
	var rows []insightsRow
	for page := 0; next != ""; page++ {
		if page == maxPages {
			return nil, ErrTooManyPages
		}
		var resp insightsResponse
		if err := c.getWithRetry(ctx, next, req.AccessToken, &resp); err != nil {
			return nil, err
		}
		rows = append(rows, resp.Data...)
		next = resp.Paging.Next
	}
	return rows, nil
}

func (c *Client) insightsURL(req FetchRequest, daily bool) string {
	account := req.AccountID
	if !strings.HasPrefix(account, "act_") {
		account = "act_" + account
	}

	timeRange, _ := json.Marshal(map[string]string{
		"since": models.FormatDay(req.Since),
		"until": models.FormatDay(req.Until),
	})

	q := url.Values{}
	q.Set("fields", insightsFields)
	q.Set("level", "account")
	q.Set("time_range", string(timeRange))
	if daily {
		q.Set("time_increment", "1")
	}

	return fmt.Sprintf("%s/%s/%s/insights?%s", c.baseURL, c.version, account, q.Encode())
}

func (c *Client) getWithRetry(ctx context.Context, u, token string, out *insightsResponse) error {
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return c.get(ctx, u, token, out)
		},
		IsFatalError: func(err error) bool {
			if ctx.Err() != nil {
				return true
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return false
		},
		NotifyFunc: func(err error, attempt int) {
			c.logger.Warn("insights request failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		},
		Attempts: c.attempts,
		Delay:    c.delay,
		Clock:    c.clock,
		Stop:     ctx.Done(),
	})
	switch {
	case err == nil:
		return nil
	case retry.IsRetryStopped(err):
		return fmt.Errorf("insights request cancelled: %w", ctx.Err())
	case retry.IsAttemptsExceeded(err):
		return retry.LastError(err)
	}
	return err
}

func (c *Client) get(ctx context.Context, u, token string, out *insightsResponse) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call insights: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read insights response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp.StatusCode, body)
	}

	*out = insightsResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode insights response: %w", err)
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}

	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != nil {
		apiErr.Code = er.Error.Code
		apiErr.Subcode = er.Error.Subcode
		apiErr.Type = er.Error.Type
		apiErr.Message = er.Error.Message
		apiErr.TraceID = er.Error.FBTraceID
	}
	return apiErr
}
