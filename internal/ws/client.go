package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/models"
)

const (
	writeTimeout     = 10 * time.Second
	wsReadLimit      = 4096
	clientSendBuffer = 256
	// maxConnLifetime caps a connection even when its token lives longer.
	maxConnLifetime = 4 * time.Hour
	reauthInterval  = 15 * time.Minute
	pingInterval    = 30 * time.Second
	pingTimeout     = 10 * time.Second
	maxMissedPongs  = 2
)

const closeReasonAuth = "authentication expired"

// TokenValidator re-checks the bearer token a connection was opened with.
type TokenValidator interface {
	Verify(token string) (models.Actor, error)
	ExpiresAt(token string) (time.Time, error)
}

// Client is one streaming connection. Actor is fixed for the life of the
// connection; a token that stops resolving to the same actor ends it.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	log         *logrus.Logger
	Actor       models.Actor
	token       string
	validator   TokenValidator
	closeOnce   sync.Once
	connectedAt time.Time
}

// NewClient creates a Client for conn, authenticated as actor by token.
func NewClient(hub *Hub, conn *websocket.Conn, actor models.Actor, validator TokenValidator, token string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, clientSendBuffer),
		log:         hub.log,
		Actor:       actor,
		token:       token,
		validator:   validator,
		connectedAt: time.Now(),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// trySend queues msg unless the buffer is full.
func (c *Client) trySend(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// lifetime is the time left before the token expires or maxConnLifetime
// elapses, whichever comes first.
func (c *Client) lifetime(now time.Time) time.Duration {
	limit := c.connectedAt.Add(maxConnLifetime).Sub(now)
	if c.validator == nil {
		return limit
	}

	exp, err := c.validator.ExpiresAt(c.token)
	if err != nil {
		return 0
	}

	return min(limit, exp.Sub(now))
}

// stillAuthorized reports whether the token still verifies as the same actor
// with the same role. Role changes end the stream because visibility was
// decided by the old role.
func (c *Client) stillAuthorized() bool {
	if c.validator == nil {
		return true
	}

	actor, err := c.validator.Verify(c.token)

	return err == nil && actor == c.Actor
}

// ReadPump consumes client messages until the connection closes. The only
// message understood is a subscribe request carrying last_event_id.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // teardown.
	}()

	c.conn.SetReadLimit(wsReadLimit)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.log.WithFields(logrus.Fields{"actor": c.Actor.ID, "status": status}).Debug("client disconnected")
			}

			return
		}

		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg SubscribeMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "subscribe" {
		return
	}

	if c.hub.ReplayEvents(c, msg.LastEventID) {
		return
	}

	reset, err := json.Marshal(ResetMsg{
		Type:   "reset",
		Reason: "requested events no longer available, reload reviews",
	})
	if err == nil {
		c.trySend(reset)
	}
}

// WritePump delivers queued events, keeps the connection alive with pings and
// closes it once authentication lapses.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // teardown.

	expiry := time.NewTimer(c.lifetime(time.Now()))
	defer expiry.Stop()

	reauth := time.NewTicker(reauthInterval)
	defer reauth.Stop()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	missed := 0

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			if err := c.write(ctx, msg); err != nil {
				c.log.WithError(err).WithField("actor", c.Actor.ID).Debug("write failed")
				return
			}

		case <-ping.C:
			if c.ping(ctx) {
				missed = 0
				continue
			}

			if missed++; missed >= maxMissedPongs {
				c.log.WithField("actor", c.Actor.ID).Debug("closing WebSocket: pongs missed")
				return
			}

		case <-reauth.C:
			if !c.stillAuthorized() {
				c.closeAuth("token no longer valid")
				return
			}

		case <-expiry.C:
			c.closeAuth("connection lifetime exceeded")
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return c.conn.Write(ctx, websocket.MessageText, msg)
}

func (c *Client) ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	return c.conn.Ping(ctx) == nil
}

func (c *Client) closeAuth(why string) {
	c.log.WithField("actor", c.Actor.ID).Info("closing WebSocket: " + why)
	c.conn.Close(websocket.StatusPolicyViolation, closeReasonAuth) //nolint:errcheck // best-effort.
}
