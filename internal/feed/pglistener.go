package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"learnhub/internal/shared"

	"github.com/jackc/pgx/v5"
)

// PGListener turns postgres NOTIFY messages emitted by the notifications trigger
// into hub events.
type PGListener struct {
	databaseURL string
	channel     string
	retry       time.Duration
	target      Publisher
	logger      *slog.Logger
}

func NewPGListener(databaseURL string, retry time.Duration, target Publisher, logger *slog.Logger) *PGListener {
	if retry <= 0 {
		retry = 5 * time.Second
	}
	return &PGListener{
		databaseURL: databaseURL,
		channel:     DefaultChannel,
		retry:       retry,
		target:      target,
		logger:      logger,
	}
}

// Run listens until ctx is cancelled, reconnecting after every connection loss.
func (l *PGListener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Error("change_feed_listener_failed",
			"channel", l.channel,
			"error", err,
			"retry_in", l.retry.String(),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retry):
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("change_feed_listening", "channel", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.dispatch(ctx, []byte(n.Payload))
	}
}

func (l *PGListener) dispatch(ctx context.Context, payload []byte) {
	ev, err := shared.DecodeChangeEvent(payload)
	if err != nil {
		l.logger.Warn("change_feed_bad_payload", "channel", l.channel, "error", err)
		return
	}
	if err := l.target.Publish(ctx, ev); err != nil {
		l.logger.Error("change_feed_publish_failed", "user_id", ev.UserID, "error", err)
	}
}
