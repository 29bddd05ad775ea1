package client

// http_client.go = REST client of the notifications API, used as the inbox's remote store.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"learnhub/internal/inbox"
)

// APIError is a non-2xx response from the API server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type listResponse struct {
	Notifications []inbox.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
}

type unreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

type affectedResponse struct {
	Affected int64 `json:"affected"`
}

// defines the HTTP client structure and methods
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// constructor for HTTP client
func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchNotifications returns every active notification of the session user, newest first.
func (c *HTTPClient) FetchNotifications(ctx context.Context, s inbox.Session) ([]inbox.Notification, error) {
	var result listResponse
	if err := c.do(ctx, http.MethodGet, "/api/notifications", s.Token, &result); err != nil {
		return nil, err
	}
	if result.Notifications == nil {
		result.Notifications = []inbox.Notification{}
	}
	return result.Notifications, nil
}

func (c *HTTPClient) UnreadCount(ctx context.Context, s inbox.Session) (int, error) {
	var result unreadCountResponse
	if err := c.do(ctx, http.MethodGet, "/api/notifications/unread-count", s.Token, &result); err != nil {
		return 0, err
	}
	return result.UnreadCount, nil
}

func (c *HTTPClient) MarkAsRead(ctx context.Context, s inbox.Session, id string) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", s.Token, &affectedResponse{})
}

func (c *HTTPClient) MarkAllAsRead(ctx context.Context, s inbox.Session) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/read-all", s.Token, &affectedResponse{})
}

func (c *HTTPClient) Dismiss(ctx context.Context, s inbox.Session, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications/"+url.PathEscape(id), s.Token, &affectedResponse{})
}

func (c *HTTPClient) DismissAllRead(ctx context.Context, s inbox.Session) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications/read", s.Token, &affectedResponse{})
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // Ensure the response body is closed

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := resp.Status
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
