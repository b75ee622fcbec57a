package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/roadwatch/roadwatch/pkg/types"
)

// Client wraps the road-alert backend REST API
type Client struct {
	rest *resty.Client
}

// Option configures a Client
type Option func(*Client)

// WithToken sets the bearer token used for authenticated calls
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.rest.SetAuthToken(token)
		}
	}
}

// WithTimeout overrides the default per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.rest.SetTimeout(d)
	}
}

// NewClient creates a new backend client for the given base URL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "roadwatch/1.0"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx backend response
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

func checkStatus(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
}

// ListAlerts fetches the full alert list
func (c *Client) ListAlerts(ctx context.Context) ([]*types.Alert, error) {
	var alerts []*types.Alert
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&alerts).
		Get("/api/alert")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListActiveAlerts fetches only active alerts
func (c *Client) ListActiveAlerts(ctx context.Context) ([]*types.Alert, error) {
	var alerts []*types.Alert
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&alerts).
		Get("/api/alert/active")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return alerts, nil
}

// CreateAlert creates a new alert and returns the backend-confirmed record
func (c *Client) CreateAlert(ctx context.Context, req types.CreateAlertRequest) (*types.Alert, error) {
	var alert types.Alert
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&alert).
		Post("/api/alert")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &alert, nil
}

// UpdateStatus changes an alert's lifecycle status
func (c *Client) UpdateStatus(ctx context.Context, id int64, status types.AlertStatus) (*types.Alert, error) {
	var alert types.Alert
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("status", string(status)).
		SetResult(&alert).
		Patch(fmt.Sprintf("/api/alert/%d/status", id))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &alert, nil
}

// DeleteAlert removes an alert
func (c *Client) DeleteAlert(ctx context.Context, id int64) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/api/alert/%d", id))
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

// Vote casts an up or down vote on an alert
func (c *Client) Vote(ctx context.Context, id int64, direction types.VoteDirection) (*types.Alert, error) {
	var alert types.Alert
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"direction": string(direction)}).
		SetResult(&alert).
		Post(fmt.Sprintf("/api/alert/%d/vote", id))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Comment posts a comment on an alert
func (c *Client) Comment(ctx context.Context, id int64, body string) (*types.Comment, error) {
	var comment types.Comment
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"body": body}).
		SetResult(&comment).
		Post(fmt.Sprintf("/api/alert/%d/comment", id))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Health probes the backend health endpoint. A nil error means the backend
// is reachable
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		Get("/api/health")
	if err != nil {
		return err
	}
	return checkStatus(resp)
}
