package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/dbpool"
	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/metrics"
	"github.com/persistorai/caseqc/internal/models"
)

// EventChannel is the NOTIFY channel review events are published on.
const EventChannel = "caseqc_events"

const (
	minRetry = time.Second
	maxRetry = 30 * time.Second
	// pollInterval bounds how long a wait blocks before ctx is rechecked.
	pollInterval = 2 * time.Minute
)

// NotifyBridge listens on EventChannel and hands each committed review event
// to the broadcaster. Delivery is at most once: events committed while the
// listening connection is down are not replayed.
type NotifyBridge struct {
	log  *logrus.Logger
	pool *dbpool.Pool
	hub  domain.EventBroadcaster
}

// NewNotifyBridge creates a NotifyBridge that forwards to hub.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, hub domain.EventBroadcaster) *NotifyBridge {
	return &NotifyBridge{log: log, pool: pool, hub: hub}
}

// Start checks the database is reachable and then listens in the background
// until ctx is cancelled, reconnecting with jittered backoff.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.run(ctx)

	return nil
}

func (b *NotifyBridge) run(ctx context.Context) {
	wait := minRetry

	for ctx.Err() == nil {
		err := b.listen(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		metrics.NotifyReconnects.Inc()
		b.log.WithError(err).WithField("retry_in", wait).
			Warn("review event listener lost its connection; events committed meanwhile will not be streamed")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		wait = nextBackoff(wait)
	}
}

// listen holds one connection in LISTEN mode until it fails or ctx ends.
func (b *NotifyBridge) listen(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{EventChannel}.Sanitize()); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	b.log.WithField("channel", EventChannel).Info("listening for review events")

	for {
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		n, err := conn.Conn().WaitForNotification(ctx)
		switch {
		case err == nil:
			b.forward(n)
		case ctx.Err() != nil:
			return nil
		case isTimeout(err):
			continue
		default:
			return fmt.Errorf("waiting for notification: %w", err)
		}
	}
}

// forward decodes a notification payload and broadcasts it. Payloads that do
// not name a review and an event type are dropped.
func (b *NotifyBridge) forward(n *pgconn.Notification) {
	var event models.ReviewEvent
	if err := json.Unmarshal([]byte(n.Payload), &event); err != nil || event.ReviewID == "" || event.Type == "" {
		b.log.WithField("pid", n.PID).Warn("dropping malformed review notification")
		return
	}

	b.log.WithFields(logrus.Fields{
		"review_id": event.ReviewID,
		"type":      event.Type,
		"version":   event.Version,
	}).Debug("review event received")

	b.hub.BroadcastReviewEvent(event)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// nextBackoff doubles d, caps it at maxRetry and spreads it by ±25%.
func nextBackoff(d time.Duration) time.Duration {
	d = min(2*d, maxRetry)
	return time.Duration(float64(d) * (0.75 + rand.Float64()*0.5)) //nolint:gosec // jitter only.
}
