// Package hosted talks to a hosted backend-as-a-service: a PostgREST style
// data API under /rest/v1 and a token auth API under /auth/v1.
package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"plcvisualizer/config"
	"plcvisualizer/models"
	"plcvisualizer/services"
)

var (
	_ services.Backend       = (*Client)(nil)
	_ services.Authenticator = (*Client)(nil)
	_ services.UserAdmin     = (*Client)(nil)
)

// Client is the hosted backend client
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a hosted backend client
func New(cfg config.HostedConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", cfg.APIKey).
		SetAuthToken(cfg.APIKey)

	return &Client{httpClient: client, logger: logger, now: time.Now}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.httpClient.R().SetContext(ctx)
}

// Ping checks that the data API answers
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.request(ctx).Get("/rest/v1/")
	return check("ping hosted backend", resp, err)
}

// Close releases nothing; the HTTP client has no persistent state to close
func (c *Client) Close() error {
	return nil
}

type apiError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Details          string `json:"details"`
}

func apiMessage(resp *resty.Response) string {
	var e apiError
	if err := json.Unmarshal(resp.Body(), &e); err == nil {
		for _, m := range []string{e.Message, e.Msg, e.ErrorDescription, e.Details} {
			if m != "" {
				return m
			}
		}
	}
	return resp.Status()
}

// check maps transport failures and HTTP status codes onto the model sentinels.
// A request aborted by its caller's context is not an outage and keeps the
// context error.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		if ctxErr := requestContextErr(resp); ctxErr != nil {
			return fmt.Errorf("failed to %s: %w", op, ctxErr)
		}
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed to %s: %w", op, err)
		}
		return fmt.Errorf("failed to %s: %w: %w", op, models.ErrUnavailable, err)
	}
	if resp.IsSuccess() {
		return nil
	}

	var sentinel error
	switch code := resp.StatusCode(); {
	case code == 401:
		sentinel = models.ErrUnauthorized
	case code == 403:
		sentinel = models.ErrForbidden
	case code == 404 || code == 406:
		sentinel = models.ErrNotFound
	case code >= 500:
		sentinel = models.ErrUnavailable
	default:
		sentinel = models.ErrValidation
	}
	return fmt.Errorf("failed to %s: %w: %s", op, sentinel, apiMessage(resp))
}

func requestContextErr(resp *resty.Response) error {
	if resp == nil || resp.Request == nil {
		return nil
	}
	return resp.Request.Context().Err()
}

// affectedCount reads the total from a Content-Range header such as "0-9/42" or "*/42"
func affectedCount(resp *resty.Response) int64 {
	cr := resp.Header().Get("Content-Range")
	i := strings.LastIndex(cr, "/")
	if i < 0 {
		return 0
	}
	n, err := strconv.ParseInt(cr[i+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func eq(v string) string {
	return "eq." + v
}
