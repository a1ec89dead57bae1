package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-devices/internal/auth"
	"github.com/nerrad567/gray-logic-devices/internal/device"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSession     = "session"
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Device event channels. Every channel a client names must sit under
// DeviceChannelPrefix; AllDeviceChannels receives all of them.
const (
	DeviceChannelPrefix = "device."
	AllDeviceChannels   = DeviceChannelPrefix + "*"
)

// wsSendBufferSize is the per-client outbound queue. Events beyond it are
// dropped for that client only.
const wsSendBufferSize = 256

// WSMessage is the envelope for every frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// inboundMessage keeps the payload raw so each handler decodes its own shape.
type inboundMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// WSSubscribePayload selects device channels and, optionally, the devices
// whose events are wanted. No DeviceIDs means every device.
type WSSubscribePayload struct {
	Channels  []string `json:"channels"`
	DeviceIDs []int64  `json:"device_ids,omitempty"`
}

// WSSession is sent once after the upgrade so panels know what they may do.
type WSSession struct {
	Subject     string            `json:"subject"`
	Role        auth.Role         `json:"role"`
	Permissions []auth.Permission `json:"permissions"`
	Channels    []string          `json:"channels"`
}

// eventTarget is the part of a device notification used for filtering.
// Updates carry the view under "device"; pairing requests carry "deviceId".
type eventTarget struct {
	Device *struct {
		ID int64 `json:"id"`
	} `json:"device"`
	DeviceID *int64 `json:"deviceId"`
}

func (e eventTarget) id() (int64, bool) {
	switch {
	case e.Device != nil:
		return e.Device.ID, true
	case e.DeviceID != nil:
		return *e.DeviceID, true
	}
	return 0, false
}

// validateChannels rejects anything outside the device namespace.
func validateChannels(channels []string) error {
	if len(channels) == 0 {
		return fmt.Errorf("channels must not be empty")
	}
	for _, ch := range channels {
		if ch == AllDeviceChannels {
			continue
		}
		if !strings.HasPrefix(ch, DeviceChannelPrefix) || len(ch) == len(DeviceChannelPrefix) || strings.Contains(ch, "*") {
			return fmt.Errorf("unsupported channel %q: channels must start with %q", ch, DeviceChannelPrefix)
		}
	}
	return nil
}

// subscription is one client's channel and device filter.
type subscription struct {
	channels map[string]struct{}
	devices  map[int64]struct{}
}

func newSubscription() subscription {
	return subscription{channels: make(map[string]struct{}), devices: make(map[int64]struct{})}
}

func (s subscription) add(p WSSubscribePayload) {
	for _, ch := range p.Channels {
		s.channels[ch] = struct{}{}
	}
	for _, id := range p.DeviceIDs {
		s.devices[id] = struct{}{}
	}
}

func (s subscription) remove(p WSSubscribePayload) {
	for _, ch := range p.Channels {
		delete(s.channels, ch)
	}
	for _, id := range p.DeviceIDs {
		delete(s.devices, id)
	}
}

// matches reports whether an event on channel about device id (when known)
// passes the filter. Events without a device id ignore the device filter.
func (s subscription) matches(channel string, id int64, hasID bool) bool {
	_, exact := s.channels[channel]
	_, all := s.channels[AllDeviceChannels]
	if !exact && !all {
		return false
	}
	if len(s.devices) == 0 || !hasID {
		return true
	}
	_, ok := s.devices[id]
	return ok
}

func (s subscription) channelList() []string {
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	return out
}

// Hub fans device notifications out to WebSocket clients.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one authenticated WebSocket connection.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subject string
	role    auth.Role

	mu  sync.RWMutex
	sub subscription
}

func newWSClient(hub *Hub, conn *websocket.Conn, claims *auth.CustomClaims) *WSClient {
	c := &WSClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
		sub:  newSubscription(),
	}
	if claims != nil {
		c.subject = claims.Subject
		c.role = claims.Role
	}
	return c
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS middleware has already vetted the origin.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewHub creates an empty hub. Call Run to tie its lifetime to a context.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subject", c.subject, "role", c.role, "clients", n)
}

// Unregister removes a client. Whoever removes it from the map closes its
// send channel, so Run and readPump never both close it.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
	}
	h.logger.Debug("websocket client disconnected", "subject", c.subject, "clients", n)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ChannelForTopic maps a notification topic onto a WebSocket channel name,
// e.g. "device/updated" becomes "device.updated".
func ChannelForTopic(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

// Publish implements device.Notifier. The event goes to every client whose
// subscription matches the channel and device; it never fails.
func (h *Hub) Publish(_ context.Context, topic string, payload []byte) error {
	var target eventTarget
	// Payloads without a device id reach every channel subscriber.
	_ = json.Unmarshal(payload, &target)
	id, hasID := target.id()
	h.broadcast(ChannelForTopic(topic), json.RawMessage(payload), id, hasID)
	return nil
}

func (h *Hub) broadcast(channel string, payload any, id int64, hasID bool) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("marshalling websocket event", "channel", channel, "error", err)
		return
	}

	// Snapshot under the hub lock; client locks are taken after release.
	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.wants(channel, id, hasID) {
			c.trySend(data)
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("websocket event delivered", "channel", channel, "device_id", id, "recipients", delivered)
	}
}

// handleWebSocket authenticates and upgrades a connection. Browsers cannot
// set headers on the upgrade request, so the access token comes from the
// token query parameter first and the Authorization header second.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = bearerToken(r) //nolint:errcheck // empty token is rejected below
	}
	if token == "" {
		writeUnauthorized(w, "token query parameter is required")
		return
	}
	claims, err := auth.ParseToken(token, s.secCfg.JWT.Secret)
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}
	if !auth.HasPermission(claims.Role, auth.PermDeviceRead) {
		writeForbidden(w, "websocket requires device read access")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newWSClient(s.hub, conn, claims)
	s.hub.Register(c)
	c.reply("", WSTypeSession, c.session())

	go c.writePump()
	go c.readPump()
}

func (c *WSClient) session() WSSession {
	return WSSession{
		Subject:     c.subject,
		Role:        c.role,
		Permissions: auth.PermissionsForRole(c.role),
		Channels:    []string{ChannelForTopic(device.TopicUpdated), ChannelForTopic(device.TopicPairingStart), AllDeviceChannels},
	}
}

// readPump owns the read side and unregisters the client when it ends.
func (c *WSClient) readPump() {
	cfg := c.hub.cfg
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	idle := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(idle)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	extend() //nolint:errcheck // a failed deadline surfaces on the next read
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "subject", c.subject, "error", err)
			}
			return
		}
		// Application frames count as liveness for browsers that ignore pings.
		extend() //nolint:errcheck // a failed deadline surfaces on the next read
		c.dispatch(data)
	}
}

// writePump owns the write side: queued frames plus keepalive pings.
func (c *WSClient) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // the write below reports failure
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, open := <-c.send:
			if !open {
				write(websocket.CloseMessage, nil) //nolint:errcheck // connection is going away
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

// dispatch handles one client frame.
func (c *WSClient) dispatch(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.replyError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.updateSubscription(msg)
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.replyError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// updateSubscription applies a subscribe or unsubscribe request. A request
// naming any channel outside the device namespace changes nothing.
func (c *WSClient) updateSubscription(msg inboundMessage) {
	var p WSSubscribePayload
	if len(msg.Payload) == 0 || json.Unmarshal(msg.Payload, &p) != nil {
		c.replyError(msg.ID, "invalid "+msg.Type+" payload")
		return
	}
	if msg.Type == WSTypeSubscribe {
		if err := validateChannels(p.Channels); err != nil {
			c.replyError(msg.ID, err.Error())
			return
		}
	}

	c.mu.Lock()
	if msg.Type == WSTypeSubscribe {
		c.sub.add(p)
	} else {
		c.sub.remove(p)
	}
	active := c.sub.channelList()
	c.mu.Unlock()

	c.hub.logger.Debug("websocket subscription changed", "subject", c.subject, "action", msg.Type, "channels", p.Channels, "device_ids", p.DeviceIDs)

	key := "subscribed"
	if msg.Type == WSTypeUnsubscribe {
		key = "unsubscribed"
	}
	c.reply(msg.ID, WSTypeResponse, map[string]any{
		key:        p.Channels,
		"channels": active,
	})
}

func (c *WSClient) wants(channel string, id int64, hasID bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sub.matches(channel, id, hasID)
}

// trySend queues data without blocking. A full queue drops the frame; a
// channel closed during shutdown is absorbed.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on a channel closed by Run or Unregister
	}()
	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) replyError(id, message string) {
	c.reply(id, WSTypeError, map[string]string{"message": message})
}
