// Package producer is the client side of the internal create endpoint: the way other
// subsystems (grading, badges, reports) put notifications into a user's inbox.
package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Notice is the content of one notification.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"` // info, success, warning, error
}

// Created is the row the server stored.
type Created struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// BroadcastResult reports per-user outcomes of a Broadcast.
type BroadcastResult struct {
	Created []Created
	Failed  map[string]error // user id -> cause
}

type createRequest struct {
	UserID string `json:"user_id"`
	Notice
}

// Notifier posts notifications with a service_role token.
type Notifier struct {
	apiURL     string
	token      string
	httpClient *http.Client
	workers    int
	logger     *slog.Logger
}

// NewNotifier creates a new notifier instance
func NewNotifier(apiURL, serviceToken string, logger *slog.Logger) *Notifier {
	return &Notifier{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  serviceToken,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		workers: 4,
		logger:  logger,
	}
}

// WithWorkers sets Broadcast concurrency.
func (n *Notifier) WithWorkers(workers int) *Notifier {
	n.workers = workers
	return n
}

// Notify creates one unread notification for userID.
func (n *Notifier) Notify(ctx context.Context, userID string, notice Notice) (*Created, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	body, err := json.Marshal(createRequest{UserID: userID, Notice: notice})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL+"/api/internal/notifications", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, payload.Error)
	}

	var created Created
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("decode created notification: %w", err)
	}
	return &created, nil
}

// Broadcast sends the same notice to every user, a few requests at a time.
// Individual failures are collected, not fatal. Every user ends up in either
// Created or Failed: requests dropped by a cancelled ctx fail with its error.
func (n *Notifier) Broadcast(ctx context.Context, userIDs []string, notice Notice) *BroadcastResult {
	result := &BroadcastResult{Failed: make(map[string]error)}
	sent := make(map[string]bool, len(userIDs))
	var mu sync.Mutex

	pool := NewWorkerPool(ctx, n.workers, n.logger)
	pool.Start()

	for _, userID := range userIDs {
		err := pool.Submit(func(ctx context.Context) error {
			created, err := n.Notify(ctx, userID, notice)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[userID] = err
				return err
			}
			sent[userID] = true
			result.Created = append(result.Created, *created)
			return nil
		})
		if err != nil {
			mu.Lock()
			result.Failed[userID] = err
			mu.Unlock()
		}
	}
	pool.Wait()

	// tasks still queued when ctx was cancelled never ran
	cause := ctx.Err()
	if cause == nil {
		cause = ErrPoolClosed
	}
	for _, userID := range userIDs {
		if _, failed := result.Failed[userID]; !failed && !sent[userID] {
			result.Failed[userID] = cause
		}
	}

	n.logger.Info("notification_broadcast_done",
		"users", len(userIDs),
		"created", len(result.Created),
		"failed", len(result.Failed),
	)
	return result
}
