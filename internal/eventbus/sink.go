package eventbus

import (
	"encoding/hex"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/Shoaibashk/serialmonitor/internal/decode"
)

// Sink adapts a Bus and a Registry into a channel.EventSink: it is the
// concrete piece of plumbing the channel runtime is deliberately ignorant
// of. Decoding happens here, once per raw read, against pre-framing bytes
// per the raw-data path — never against already line-framed text.
type Sink struct {
	bus      *Bus
	registry *decode.Registry
}

// NewSink builds a Sink publishing onto bus, decoding raw reads through
// registry.
func NewSink(bus *Bus, registry *decode.Registry) *Sink {
	return &Sink{bus: bus, registry: registry}
}

func (s *Sink) OnConnected(channelID string, cfg channel.PortConfig) {
	s.bus.Publish(ConnectedEvent{ChannelID: channelID, Config: cfg})
}

func (s *Sink) OnDisconnected(channelID string) {
	s.bus.Publish(DisconnectedEvent{ChannelID: channelID})
}

// OnRead decodes raw once and publishes a raw-data event, then a line
// event per framed entry — attaching the decoded frames to rx entries that
// fall within this same read.
func (s *Sink) OnRead(channelID string, raw []byte, lines []channel.LineEntry) {
	if len(raw) > 0 {
		s.bus.Publish(RawDataEvent{
			ChannelID: channelID,
			Hex:       hex.EncodeToString(raw),
			Timestamp: nowMillis(),
		})
	}

	var decoded []decode.DecodedFrame
	if s.registry != nil && len(raw) > 0 {
		decoded = s.registry.DecodeAll(raw)
	}

	for _, entry := range lines {
		ev := LineEvent{ChannelID: channelID, Entry: entry}
		if entry.Direction == channel.DirectionRX && len(decoded) > 0 {
			ev.Decoded = decoded
		}
		s.bus.Publish(ev)
	}
}

func (s *Sink) OnSend(channelID string, entry channel.LineEntry) {
	s.bus.Publish(LineEvent{ChannelID: channelID, Entry: entry})
}

func (s *Sink) OnError(channelID string, kind channel.Kind, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.bus.Publish(ErrorEvent{ChannelID: channelID, Kind: kind.String(), Error: msg})
}

func (s *Sink) OnCleared(channelID string) {
	s.bus.Publish(ClearedEvent{ChannelID: channelID})
}

func (s *Sink) OnPortsChanged(ports []channel.PortInfo) {
	s.bus.Publish(PortsChangedEvent{Ports: ports})
}
