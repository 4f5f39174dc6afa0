// Package ws streams committed review events to connected reviewers and
// supervisors over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/metrics"
	"github.com/persistorai/caseqc/internal/models"
)

// Hub channel buffer sizes.
const (
	broadcastBuffer = 256
	registerBuffer  = 64
)

// Connection caps.
const (
	maxClients         = 1000
	maxClientsPerActor = 10
)

// maxBroadcastPayload is the maximum allowed event payload size (4 KB).
const maxBroadcastPayload = 4096

// outbound is sent through the broadcast channel to the Run goroutine.
type outbound struct {
	event *Event
	msg   []byte
}

// Hub manages active WebSocket clients and fans review events out to the
// clients allowed to see them. All client map mutations happen exclusively
// in the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	actorCount map[string]int
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	shutdown   chan struct{}
	done       chan struct{}
	count      atomic.Int64
	log        *logrus.Logger
	seq        *EventSequence
	buffer     *EventBuffer
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		actorCount: make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan outbound, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		seq:        NewEventSequence(),
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
	}
}

// drainTimeout is how long the hub waits for clients to flush after shutdown.
const drainTimeout = 3 * time.Second

// Run starts the hub event loop. It should be run as a goroutine.
// It exits when Shutdown is called or the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return
		case <-h.shutdown:
			h.drainClients()

			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.removeClient(client)
			}
			h.updateCount()
			h.log.WithField("total", len(h.clients)).Info("client unregistered")

		case b := <-h.broadcast:
			for client := range h.clients {
				if !b.event.visibleTo(client.Actor) {
					continue
				}
				if !client.trySend(b.msg) {
					h.log.WithField("actor", client.Actor.ID).Warn("client send buffer full, disconnecting")
					h.removeClient(client)
				}
			}
			h.updateCount()
		}
	}
}

func (h *Hub) addClient(client *Client) {
	if len(h.clients) >= maxClients {
		h.log.Warn("global connection limit reached, dropping client")
		client.closeSend()

		return
	}

	if h.actorCount[client.Actor.ID] >= maxClientsPerActor {
		h.log.WithField("actor", client.Actor.ID).Warn("per-actor connection limit reached, dropping client")
		client.closeSend()

		return
	}

	h.clients[client] = true
	h.actorCount[client.Actor.ID]++
	h.updateCount()
	h.log.WithFields(logrus.Fields{
		"actor": client.Actor.ID,
		"role":  client.Actor.Role,
		"total": len(h.clients),
	}).Info("client registered")
}

func (h *Hub) removeClient(client *Client) {
	delete(h.clients, client)
	client.closeSend()

	h.actorCount[client.Actor.ID]--
	if h.actorCount[client.Actor.ID] <= 0 {
		delete(h.actorCount, client.Actor.ID)
	}
}

func (h *Hub) updateCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run loop already exited; client cleanup happened in Run shutdown.
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastReviewEvent assigns a sequence ID, stores the event for replay and
// queues it for every client allowed to see the review.
func (h *Hub) BroadcastReviewEvent(event models.ReviewEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal review event")
		return
	}

	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	evt := &Event{
		Type:       event.Type,
		ID:         h.seq.Next(),
		ReviewerID: event.ReviewerID,
		Data:       data,
		Time:       at.UTC(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")
		return
	}

	if len(msg) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"review_id":    event.ReviewID,
			"payload_size": len(msg),
			"max_size":     maxBroadcastPayload,
		}).Warn("dropping oversized broadcast payload")
		return
	}

	h.buffer.Append(evt)

	select {
	case h.broadcast <- outbound{event: evt, msg: msg}:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

// Shutdown initiates a graceful WebSocket drain: sends a shutdown frame to
// every connected client, waits for their write pumps to flush, then closes
// all connections. It blocks until drain is complete or the timeout expires.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

// drainClients sends a close frame to every client and waits for buffers to flush.
func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	for client := range h.clients {
		client.trySend(shutdownMsg)
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond) //nolint:mnd // poll interval
	defer ticker.Stop()

	for !h.drained() {
		select {
		case <-deadline:
			h.log.Warn("WebSocket drain timeout, closing remaining clients")
			h.closeAll()

			return
		case <-ticker.C:
		}
	}

	h.closeAll()
}

func (h *Hub) drained() bool {
	for client := range h.clients {
		if len(client.send) > 0 {
			return false
		}
	}

	return true
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.actorCount = make(map[string]int)
	h.updateCount()
}

// ReplayEvents sends the buffered events since lastEventID that the client
// may see. Returns false if the requested ID is too old (not in buffer).
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID()
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest {
		return false
	}

	events := h.buffer.Since(lastEventID)
	for i := range events {
		if !events[i].visibleTo(client.Actor) {
			continue
		}

		msg, err := json.Marshal(&events[i])
		if err != nil {
			continue
		}
		if !client.trySend(msg) {
			break
		}
	}
	return true
}
