// Package eventbus is the publish/subscribe fabric connecting the channel
// runtime to WebSocket subscribers: it implements channel.EventSink,
// attaches decoder output to rx lines, and fans every event out to
// subscribers with at-most-once, non-blocking delivery.
package eventbus

import (
	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/Shoaibashk/serialmonitor/internal/decode"
)

// Event is the discriminated union every subscriber receives. The WebSocket
// transport maps each concrete type to its wire-format discriminator.
type Event interface {
	isEvent()
}

// LineEvent corresponds to the `line` bus event / `serial:data` WS message.
type LineEvent struct {
	ChannelID string                `json:"channelId"`
	Entry     channel.LineEntry     `json:"entry"`
	Decoded   []decode.DecodedFrame `json:"decoded,omitempty"`
}

func (LineEvent) isEvent() {}

// RawDataEvent corresponds to the `raw-data` bus event / `serial:raw` WS
// message. Bytes travel as hex so JSON marshalling stays readable.
type RawDataEvent struct {
	ChannelID string `json:"channelId"`
	Hex       string `json:"hex"`
	Timestamp int64  `json:"timestamp"`
}

func (RawDataEvent) isEvent() {}

// ConnectedEvent corresponds to `connected` / `serial:status` (connected).
type ConnectedEvent struct {
	ChannelID string             `json:"channelId"`
	Config    channel.PortConfig `json:"config"`
}

func (ConnectedEvent) isEvent() {}

// DisconnectedEvent corresponds to `disconnected` / `serial:status`
// (disconnected).
type DisconnectedEvent struct {
	ChannelID string `json:"channelId"`
}

func (DisconnectedEvent) isEvent() {}

// ErrorEvent corresponds to `error` / `serial:error`.
type ErrorEvent struct {
	ChannelID string `json:"channelId"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

func (ErrorEvent) isEvent() {}

// ClearedEvent corresponds to `cleared` / `serial:cleared`.
type ClearedEvent struct {
	ChannelID string `json:"channelId"`
}

func (ClearedEvent) isEvent() {}

// PortsChangedEvent corresponds to `ports-changed` / `ports:updated`. It
// carries no channelId: it is global, not per-channel.
type PortsChangedEvent struct {
	Ports []channel.PortInfo `json:"ports"`
}

func (PortsChangedEvent) isEvent() {}
