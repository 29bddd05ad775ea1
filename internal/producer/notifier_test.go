package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedRequest struct {
	Auth string
	Body createRequest
}

func newProducerServer(t *testing.T, failFor string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/internal/notifications", r.URL.Path)

		var body createRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		mu.Lock()
		reqs = append(reqs, recordedRequest{Auth: r.Header.Get("Authorization"), Body: body})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body.UserID == failFor {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid request"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Created{
			ID:        "n-" + body.UserID,
			UserID:    body.UserID,
			Type:      "info",
			CreatedAt: time.Now(),
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestNotify(t *testing.T) {
	srv, reqs := newProducerServer(t, "")
	n := NewNotifier(srv.URL+"/", "svc-token", testLogger())

	created, err := n.Notify(context.Background(), "user-1", Notice{Title: "Graded", Message: "Quiz 3 is graded"})
	require.NoError(t, err)

	assert.Equal(t, "n-user-1", created.ID)
	assert.Equal(t, "user-1", created.UserID)
	require.Len(t, *reqs, 1)
	assert.Equal(t, "Bearer svc-token", (*reqs)[0].Auth)
	assert.Equal(t, "Graded", (*reqs)[0].Body.Title)
}

func TestNotify_ServerError(t *testing.T) {
	srv, _ := newProducerServer(t, "bad")
	n := NewNotifier(srv.URL, "svc-token", testLogger())

	_, err := n.Notify(context.Background(), "bad", Notice{Title: "x", Message: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid request")
}

func TestNotify_RequiresUser(t *testing.T) {
	n := NewNotifier("http://127.0.0.1:1", "svc-token", testLogger())

	_, err := n.Notify(context.Background(), "", Notice{Title: "x", Message: "y"})
	assert.Error(t, err)
}

func TestBroadcast(t *testing.T) {
	srv, reqs := newProducerServer(t, "u3")
	n := NewNotifier(srv.URL, "svc-token", testLogger()).WithWorkers(2)

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	res := n.Broadcast(context.Background(), users, Notice{Title: "Maintenance", Message: "Tonight", Type: "warning"})

	assert.Len(t, res.Created, 4)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed, "u3")
	assert.Len(t, *reqs, 5)
	for _, r := range *reqs {
		assert.Equal(t, "warning", r.Body.Type)
	}
}

func broadcastUsers(n int) []string {
	users := make([]string, n)
	for i := range users {
		users[i] = fmt.Sprintf("user-%02d", i)
	}
	return users
}

func TestBroadcast_CancelledMidwayAccountsForEveryUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(cancel)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"n-1","user_id":"x","type":"info"}`))
	}))
	defer srv.Close()

	users := broadcastUsers(20)
	res := NewNotifier(srv.URL, "svc-token", testLogger()).WithWorkers(1).
		Broadcast(ctx, users, Notice{Title: "t", Message: "m"})

	assert.Equal(t, len(users), len(res.Created)+len(res.Failed))
	assert.NotEmpty(t, res.Failed)

	cancelled := 0
	for _, err := range res.Failed {
		if errors.Is(err, context.Canceled) || errors.Is(err, ErrPoolClosed) {
			cancelled++
		}
	}
	assert.Positive(t, cancelled)
}

func TestBroadcast_AlreadyCancelled(t *testing.T) {
	srv, reqs := newProducerServer(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	users := broadcastUsers(10)
	res := NewNotifier(srv.URL, "svc-token", testLogger()).WithWorkers(2).
		Broadcast(ctx, users, Notice{Title: "t", Message: "m"})

	assert.Empty(t, res.Created)
	assert.Len(t, res.Failed, len(users))
	assert.Empty(t, *reqs)
}

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 3, testLogger())
	pool.Start()

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	pool.Wait()

	assert.Equal(t, int32(20), ran.Load())
	assert.ErrorIs(t, pool.Submit(func(context.Context) error { return nil }), ErrPoolClosed)
}

func TestWorkerPool_Shutdown(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, testLogger())
	pool.Start()

	started := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not cancel the running task")
	}
}
