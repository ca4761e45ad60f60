// Package server coordinates client registration, joins, chat messages and
// departures for the relay via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/config"
	"github.com/Tyrowin/chatrelay/internal/pubsub"
)

// ErrHubStopped is returned by queries issued after the hub has shut down.
var ErrHubStopped = errors.New("hub stopped")

// Hub owns the session registry, the message history and the set of live
// clients. Every mutation happens on the goroutine running Run, which gives
// all clients the same order of joins, messages and leaves.
type Hub struct {
	clients   map[string]*Client
	registry  *chat.Registry
	history   *chat.History
	validator *chat.Validator
	room      string

	wsCfg      config.WebSocketConfig
	sendBuffer int

	publisher pubsub.Publisher
	feedTopic string

	now func() time.Time
	log zerolog.Logger

	events chan hubEvent

	accepted uint64
	dropped  uint64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// HubOption customises a Hub at construction.
type HubOption func(*Hub)

// WithPublisher copies every accepted message to p under topic.
func WithPublisher(p pubsub.Publisher, topic string) HubOption {
	return func(h *Hub) {
		h.publisher = p
		h.feedTopic = topic
	}
}

// WithClock replaces the wall clock used to stamp joins and messages.
func WithClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		h.now = now
	}
}

// NewHub creates a Hub ready to Run.
func NewHub(chatCfg config.ChatConfig, wsCfg config.WebSocketConfig, log zerolog.Logger, opts ...HubOption) *Hub {
	cfg := config.Config{Chat: chatCfg, WebSocket: wsCfg}
	cfg.Sanitize()
	chatCfg, wsCfg = cfg.Chat, cfg.WebSocket

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:  make(map[string]*Client),
		registry: chat.NewRegistry(),
		history:  chat.NewHistory(chatCfg.HistorySize),
		validator: chat.NewValidator(chat.Limits{
			MaxNameLength:    chatCfg.MaxNameLength,
			MaxContentLength: chatCfg.MaxContentLength,
		}),
		room:   chatCfg.RoomName,
		wsCfg:  wsCfg,
		now:    time.Now,
		log:    log.With().Str("component", "hub").Logger(),
		events: make(chan hubEvent, 256),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// A joiner receives the whole history at once, so its queue must hold it.
	h.sendBuffer = wsCfg.SendBufferSize
	if minimum := h.history.Cap() + 16; h.sendBuffer < minimum {
		h.sendBuffer = minimum
	}

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes events until Shutdown is called. It must run on its own
// goroutine and at most once.
func (h *Hub) Run() {
	defer close(h.done)
	h.log.Info().Int("history_capacity", h.history.Cap()).Msg("Hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

// Connect registers c and, when it has a connection, starts its pumps.
// It returns false once the hub is shutting down.
func (h *Hub) Connect(c *Client) bool {
	return h.submit(hubEvent{kind: eventConnect, client: c})
}

// Join asks for c to be admitted under the given display name.
func (h *Hub) Join(c *Client, displayName string) bool {
	return h.submit(hubEvent{kind: eventJoin, client: c, payload: displayName})
}

// Say submits a chat message from c.
func (h *Hub) Say(c *Client, content string) bool {
	return h.submit(hubEvent{kind: eventMessage, client: c, payload: content})
}

// Disconnect removes c. It is safe to call more than once.
func (h *Hub) Disconnect(c *Client) bool {
	return h.submit(hubEvent{kind: eventDisconnect, client: c})
}

func (h *Hub) submit(ev hubEvent) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.events <- ev:
		// Run may already have drained the queue for shutdown; the caller
		// then owns the cleanup.
		return h.ctx.Err() == nil
	case <-h.ctx.Done():
		return false
	}
}

// Stats reports the hub's counters.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := h.query(ctx, func() {
		s = Stats{
			Online:      h.registry.Count(),
			Connections: h.registry.Len(),
			History:     h.history.Len(),
			Accepted:    h.accepted,
			Dropped:     h.dropped,
		}
	})
	return s, err
}

// History returns a copy of the retained messages, oldest first.
func (h *Hub) History(ctx context.Context) ([]chat.Message, error) {
	var msgs []chat.Message
	err := h.query(ctx, func() {
		msgs = h.history.Snapshot()
	})
	return msgs, err
}

// query runs fn on the hub goroutine after every event submitted before it,
// and waits for it to finish.
func (h *Hub) query(ctx context.Context, fn func()) error {
	if h.ctx.Err() != nil {
		return ErrHubStopped
	}
	done := make(chan struct{})
	ev := hubEvent{kind: eventQuery, query: func() { fn(); close(done) }}
	select {
	case h.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) handle(ev hubEvent) {
	if ev.kind == eventQuery {
		ev.query()
		return
	}
	if ev.client == nil {
		h.log.Warn().Stringer("event", ev.kind).Msg("Received event without client; skipping")
		return
	}
	if ev.client.state == chat.StateClosed {
		h.log.Debug().Str("client_id", ev.client.id).Stringer("event", ev.kind).Msg("Ignoring event for closed client")
		return
	}

	switch ev.kind {
	case eventConnect:
		h.handleConnect(ev.client)
	case eventJoin:
		h.handleJoin(ev.client, ev.payload)
	case eventMessage:
		h.handleMessage(ev.client, ev.payload)
	case eventDisconnect:
		h.handleDisconnect(ev.client)
	}
}

func (h *Hub) handleConnect(c *Client) {
	if err := h.registry.Register(c.id); err != nil {
		h.log.Warn().Err(err).Str("client_id", c.id).Msg("Rejecting duplicate registration")
		c.state = chat.StateClosed
		c.closeConn()
		return
	}
	h.clients[c.id] = c
	c.state = chat.StateConnected
	h.log.Info().Str("client_id", c.id).Str("addr", c.addr).Int("total_clients", len(h.clients)).Msg("Client registered")

	if c.conn == nil {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

func (h *Hub) handleJoin(c *Client, raw string) {
	name, err := h.validator.DisplayName(raw)
	if err != nil {
		h.drop(c, eventJoin, err)
		return
	}

	online, err := h.registry.Authenticate(c.id, name, h.now())
	if err != nil {
		h.drop(c, eventJoin, err)
		return
	}
	c.state = chat.StateActive
	h.log.Info().Str("client_id", c.id).Str("name", name).Int("online", online).Msg("Client joined")

	h.broadcastUserCount(online)
	h.replayHistory(c)
	h.accept(chat.NewSystemMessage(chat.JoinNotice(name, h.room), h.now()))
}

func (h *Hub) handleMessage(c *Client, raw string) {
	session, ok := h.registry.Lookup(c.id)
	if !ok || !session.Active() {
		h.drop(c, eventMessage, chat.ErrUnauthenticated)
		return
	}

	content, err := h.validator.Content(raw)
	if err != nil {
		h.drop(c, eventMessage, err)
		return
	}

	h.accept(chat.NewChatMessage(session.DisplayName, content, h.now()))
}

func (h *Hub) handleDisconnect(c *Client) {
	c.state = chat.StateClosed
	if current, ok := h.clients[c.id]; ok && current == c {
		delete(h.clients, c.id)
		h.closeSend(c)
	}

	session, ok := h.registry.Unregister(c.id)
	if !ok {
		return
	}
	h.log.Info().Str("client_id", c.id).Str("addr", c.addr).Int("total_clients", len(h.clients)).Msg("Client unregistered")

	if !session.Active() {
		return
	}
	h.broadcastUserCount(h.registry.Count())
	h.accept(chat.NewSystemMessage(chat.LeaveNotice(session.DisplayName, h.room), h.now()))
}

func (h *Hub) drop(c *Client, kind eventKind, err error) {
	h.dropped++
	h.log.Debug().Err(err).Str("client_id", c.id).Stringer("event", kind).Msg("Discarding event")
}

// accept appends m to the history and fans it out.
func (h *Hub) accept(m chat.Message) {
	h.history.Append(m)
	h.accepted++

	frame, err := chat.EncodeMessage(m)
	if err != nil {
		h.log.Error().Err(err).Str("message_id", m.ID).Msg("Error encoding message")
		return
	}
	h.broadcast(frame)
	h.publish(m)
}

func (h *Hub) broadcastUserCount(n int) {
	frame, err := chat.EncodeUserCount(n)
	if err != nil {
		h.log.Error().Err(err).Msg("Error encoding user count")
		return
	}
	h.broadcast(frame)
}

func (h *Hub) replayHistory(c *Client) {
	for _, m := range h.history.Snapshot() {
		frame, err := chat.EncodeMessage(m)
		if err != nil {
			h.log.Error().Err(err).Str("message_id", m.ID).Msg("Error encoding message")
			continue
		}
		if !h.deliver(c, frame) {
			return
		}
	}
}

// broadcast pushes frame to every live client, the originator included.
func (h *Hub) broadcast(frame []byte) {
	h.log.Debug().Int("recipients", len(h.clients)).Msg("Broadcasting frame")
	for _, c := range h.clients {
		h.deliver(c, frame)
	}
}

// deliver queues frame for c without blocking. A client whose queue is full
// is cut off; its pumps then wind down and report a normal disconnect.
func (h *Hub) deliver(c *Client, frame []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		h.log.Warn().Str("client_id", c.id).Str("addr", c.addr).Msg("Send buffer full; closing client")
		h.closeSend(c)
		return false
	}
}

func (h *Hub) closeSend(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (h *Hub) publish(m chat.Message) {
	if h.publisher == nil {
		return
	}
	payload, err := json.Marshal(m)
	if err != nil {
		h.log.Error().Err(err).Str("message_id", m.ID).Msg("Error encoding feed payload")
		return
	}
	err = h.publisher.Publish(h.ctx, pubsub.Message{
		Topic:   h.feedTopic,
		Payload: payload,
		Metadata: map[string]string{
			"message_id": m.ID,
			"type":       string(m.Type),
			"author":     m.Author,
		},
	})
	if err != nil {
		h.log.Warn().Err(err).Str("topic", h.feedTopic).Msg("Error publishing to feed")
	}
}

// shutdownClients closes every client queue and connection.
func (h *Hub) shutdownClients() {
	h.log.Info().Msg("Shutting down all client connections...")

	for _, c := range h.clients {
		h.closeSend(c)
		c.closeConn()
	}

	h.log.Info().Int("clients", len(h.clients)).Msg("Closed client connections")

	// Connections accepted but never registered still hold a socket.
	for {
		select {
		case ev := <-h.events:
			if ev.kind == eventConnect && ev.client != nil {
				h.closeSend(ev.client)
				ev.client.closeConn()
			}
		default:
			return
		}
	}
}

// Shutdown stops the event loop, disconnects every client and waits for the
// client goroutines to finish, or until timeout elapses.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info().Msg("Initiating hub shutdown...")
	h.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
	case <-timer.C:
		h.log.Warn().Msg("Hub loop did not stop before timeout")
		return context.DeadlineExceeded
	}

	pumps := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(pumps)
	}()

	select {
	case <-pumps:
		h.log.Info().Msg("Hub shutdown completed successfully")
		return nil
	case <-timer.C:
		h.log.Warn().Msg("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
