package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/Shoaibashk/serialmonitor/internal/decode"
	"github.com/Shoaibashk/serialmonitor/internal/eventbus"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 2 * pingInterval
	writeWait    = 10 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// outMsg is every shape a server→client WebSocket message can take. Only
// the fields relevant to Type are populated; the rest are omitted.
type outMsg struct {
	Type      string                    `json:"type"`
	ChannelID string                    `json:"channelId,omitempty"`
	Payload   *channel.LineEntry        `json:"payload,omitempty"`
	Decoded   []decode.DecodedFrame     `json:"decoded,omitempty"`
	Hex       string                    `json:"hex,omitempty"`
	Timestamp int64                     `json:"timestamp,omitempty"`
	Status    string                    `json:"status,omitempty"`
	Config    *channel.PortConfig       `json:"config,omitempty"`
	Statuses  map[string]channel.Status `json:"statuses,omitempty"`
	Error     string                    `json:"error,omitempty"`
	Plugins   []decode.PluginInfo       `json:"plugins,omitempty"`
	Ports     []channel.PortInfo        `json:"ports,omitempty"`
}

// inMsg is every shape a client→server message can take.
type inMsg struct {
	Type      string                   `json:"type"`
	ChannelID string                   `json:"channelId"`
	Config    *channel.PortConfigInput `json:"config"`
	Data      string                   `json:"data"`
	Mode      channel.SendMode         `json:"mode"`
}

// wsConn is one connected browser client: a bus subscription fanning
// broadcast events in, and a send buffer funnelling both broadcasts and
// direct replies out through a single writer goroutine.
type wsConn struct {
	srv  *Server
	conn *websocket.Conn
	send chan outMsg
	sub  *eventbus.Subscription
}

// HandleWS upgrades the request and serves one client for the lifetime of
// the connection. It blocks until the client disconnects.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{
		srv:  s,
		conn: conn,
		send: make(chan outMsg, sendBuffer),
		sub:  s.bus.Subscribe(),
	}

	c.send <- outMsg{Type: "plugins:list", Plugins: s.registry.Plugins()}

	go c.busPump()
	go c.writePump()
	c.readPump()
}

// busPump forwards bus events translated to wire messages into the
// connection's send buffer. A full buffer drops the event rather than
// blocking publication — the bus already detaches subscribers that cannot
// keep up at all; this is the connection's own, smaller backstop.
func (c *wsConn) busPump() {
	for ev := range c.sub.Events() {
		msg, ok := translateEvent(ev)
		if !ok {
			continue
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

// writePump is the connection's single writer: it serialises broadcast
// events and direct replies onto the socket and pings every interval.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump runs in the HTTP handler goroutine, dispatching inbound messages
// until the client disconnects or fails to pong within one heartbeat
// interval.
func (c *wsConn) readPump() {
	defer func() {
		c.sub.Unsubscribe()
		close(c.send)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(outMsg{Type: "error", Error: "Invalid message format"})
			continue
		}
		c.dispatch(msg)
	}
}

func (c *wsConn) reply(msg outMsg) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *wsConn) dispatch(msg inMsg) {
	switch msg.Type {
	case "serial:connect":
		cfg, err := buildPortConfig(c.srv.manager, msg.Config)
		if err != nil {
			c.reply(outMsg{Type: "serial:error", ChannelID: msg.ChannelID, Error: err.Error()})
			return
		}
		if err := c.srv.manager.Connect(msg.ChannelID, cfg); err != nil {
			c.reply(outMsg{Type: "serial:error", ChannelID: msg.ChannelID, Error: err.Error()})
		}

	case "serial:disconnect":
		if err := c.srv.manager.Disconnect(msg.ChannelID); err != nil {
			c.reply(outMsg{Type: "serial:error", ChannelID: msg.ChannelID, Error: err.Error()})
		}

	case "serial:send":
		if err := c.srv.manager.Send(msg.ChannelID, msg.Data, msg.Mode); err != nil {
			c.reply(outMsg{Type: "serial:error", ChannelID: msg.ChannelID, Error: err.Error()})
		}

	case "serial:clear":
		c.srv.manager.ClearBuffer(msg.ChannelID)

	case "serial:getStatus":
		c.reply(outMsg{Type: "serial:status", Statuses: statusesFor(c.srv.manager, msg.ChannelID)})

	case "channel:remove":
		if err := c.srv.manager.RemoveChannel(msg.ChannelID); err != nil {
			c.reply(outMsg{Type: "serial:error", ChannelID: msg.ChannelID, Error: err.Error()})
		}

	default:
		c.reply(outMsg{Type: "error", Error: fmt.Sprintf("Unknown message type: %s", msg.Type)})
	}
}

// statusesFor returns a single-entry map when channelID is given, or every
// known channel's status otherwise — the collapsed shape spec.md's open
// question leaves to implementers.
func statusesFor(mgr *channel.Manager, channelID string) map[string]channel.Status {
	if channelID == "" {
		return mgr.GetAllStatuses()
	}
	st := mgr.GetStatus(channelID)
	return map[string]channel.Status{st.ChannelID: st}
}

// translateEvent converts one bus event into its WebSocket wire shape. ok
// is false for event types this transport does not forward (there are
// none today, but new internal event types default to silently ignored
// rather than panicking).
func translateEvent(ev eventbus.Event) (outMsg, bool) {
	switch e := ev.(type) {
	case eventbus.LineEvent:
		entry := e.Entry
		return outMsg{Type: "serial:data", ChannelID: e.ChannelID, Payload: &entry, Decoded: e.Decoded}, true
	case eventbus.RawDataEvent:
		return outMsg{Type: "serial:raw", ChannelID: e.ChannelID, Hex: e.Hex, Timestamp: e.Timestamp}, true
	case eventbus.ConnectedEvent:
		cfg := e.Config
		return outMsg{Type: "serial:status", ChannelID: e.ChannelID, Status: "connected", Config: &cfg}, true
	case eventbus.DisconnectedEvent:
		return outMsg{Type: "serial:status", ChannelID: e.ChannelID, Status: "disconnected"}, true
	case eventbus.ErrorEvent:
		return outMsg{Type: "serial:error", ChannelID: e.ChannelID, Error: e.Error}, true
	case eventbus.ClearedEvent:
		return outMsg{Type: "serial:cleared", ChannelID: e.ChannelID}, true
	case eventbus.PortsChangedEvent:
		return outMsg{Type: "ports:updated", Ports: e.Ports}, true
	default:
		return outMsg{}, false
	}
}
