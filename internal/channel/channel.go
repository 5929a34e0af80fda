package channel

import (
	"fmt"
	"sync"
	"time"
)

// EventSink receives every observable effect a Channel or the port
// enumerator produces. The channel runtime never talks to the Event Bus
// directly — it depends only on this interface — so the concrete bus
// implementation (and any decoding it layers on top of raw reads) lives
// entirely outside this package.
type EventSink interface {
	OnConnected(channelID string, cfg PortConfig)
	OnDisconnected(channelID string)
	// OnRead is called once per completed device read, carrying both the
	// raw bytes (for raw-data subscribers and protocol decoders, which
	// must see pre-framing bytes) and the LineEntries the framer produced
	// from them, if any.
	OnRead(channelID string, raw []byte, lines []LineEntry)
	OnSend(channelID string, entry LineEntry)
	OnError(channelID string, kind Kind, err error)
	OnCleared(channelID string)
	OnPortsChanged(ports []PortInfo)
}

// state is the Channel's internal state machine position. Opening and
// Closing are transient and not observable outside this package except
// that concurrent operations serialise against them.
type state int

const (
	stateClosed state = iota
	stateOpening
	stateOpen
	stateClosing
)

// Stats are per-channel counters, monotonic while open. Open resets them;
// ClearBuffer leaves them unchanged.
type Stats struct {
	BytesRx     int64 `json:"bytesRx"`
	BytesTx     int64 `json:"bytesTx"`
	LinesRx     int64 `json:"linesRx"`
	LinesTx     int64 `json:"linesTx"`
	Errors      int64 `json:"errors"`
	ConnectedAt int64 `json:"connectedAt,omitempty"`
}

// Status is a point-in-time snapshot of a Channel, safe to hand to callers
// without further locking.
type Status struct {
	ChannelID  string      `json:"channelId"`
	Connected  bool        `json:"connected"`
	Config     *PortConfig `json:"config,omitempty"`
	Stats      Stats       `json:"stats"`
	BufferSize int         `json:"bufferSize"`
}

// openTimeout is the default time Open() waits for the device to come up
// before failing with DeviceUnavailable.
const openTimeout = 5 * time.Second

// readChunkSize is the size of the scratch buffer each device.Read call
// fills.
const readChunkSize = 4096

// Channel is a single serial connection: device handle, configuration,
// line parser, ring buffer and statistics, all owned under one mutex.
type Channel struct {
	id   string
	sink EventSink

	mu        sync.Mutex
	state     state
	config    *PortConfig
	connected bool
	stats     Stats
	buf       *ringBuffer
	nextIndex int64
	dev       device
	fr        framer
	closeCh   chan struct{}

	writeMu sync.Mutex
	readerWG sync.WaitGroup
}

func newChannel(id string, sink EventSink) *Channel {
	return &Channel{
		id:   id,
		sink: sink,
		buf:  newRingBuffer(),
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// Open opens the device per cfg. If the channel is already open, it is
// closed first and then reopened with the new configuration.
func (c *Channel) Open(cfg PortConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	for {
		c.mu.Lock()
		switch c.state {
		case stateOpen:
			c.mu.Unlock()
			if err := c.Close(); err != nil {
				return err
			}
			continue
		case stateOpening:
			c.mu.Unlock()
			return newErr("Open", KindDeviceUnavailable, fmt.Errorf("channel is already opening"))
		case stateClosing:
			c.mu.Unlock()
			return newErr("Open", KindDeviceUnavailable, fmt.Errorf("channel is closing"))
		}
		c.state = stateOpening
		c.mu.Unlock()
		break
	}

	type openResult struct {
		dev device
		err error
	}
	resultCh := make(chan openResult, 1)
	go func() {
		dev, err := openDevice(cfg)
		resultCh <- openResult{dev, err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			c.mu.Lock()
			c.state = stateClosed
			c.mu.Unlock()
			return newErr("Open", KindDeviceUnavailable, res.err)
		}

		c.mu.Lock()
		c.dev = res.dev
		cfgCopy := cfg
		c.config = &cfgCopy
		c.connected = true
		c.stats = Stats{ConnectedAt: nowMillis()}
		c.fr = framer{}
		c.closeCh = make(chan struct{})
		c.state = stateOpen
		c.mu.Unlock()

		c.readerWG.Add(1)
		go c.readLoop()

		c.sink.OnConnected(c.id, cfgCopy)
		return nil

	case <-time.After(openTimeout):
		c.mu.Lock()
		c.state = stateClosed
		c.mu.Unlock()
		return newErr("Open", KindDeviceUnavailable, fmt.Errorf("timed out after %s opening %s", openTimeout, cfg.Device))
	}
}

// Close is idempotent: closing an already-closed channel, or calling Close
// a second time while a prior Close is still in flight, is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	switch c.state {
	case stateClosed, stateClosing:
		c.mu.Unlock()
		return nil
	}
	c.state = stateClosing
	closeCh := c.closeCh
	c.mu.Unlock()

	if closeCh != nil {
		close(closeCh)
	}
	c.readerWG.Wait()

	c.finishClose()
	return nil
}

// finishClose transitions a channel to Closed and publishes disconnected
// exactly once per prior connected state. Safe to call from the reader
// goroutine itself (fatal I/O) or from Close (graceful shutdown).
func (c *Channel) finishClose() {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	wasConnected := c.connected
	dev := c.dev
	c.connected = false
	c.config = nil
	c.dev = nil
	c.fr.discard()
	c.state = stateClosed
	c.mu.Unlock()

	if dev != nil {
		_ = dev.Close()
	}
	if wasConnected {
		c.sink.OnDisconnected(c.id)
	}
}

// readLoop is the Channel's single reader task: it blocks on the device,
// frames complete lines out of whatever it reads, and reports both the raw
// chunk and the framed lines to the sink.
func (c *Channel) readLoop() {
	defer c.readerWG.Done()

	buf := make([]byte, readChunkSize)
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		c.mu.Lock()
		dev := c.dev
		c.mu.Unlock()
		if dev == nil {
			return
		}

		n, err := dev.Read(buf)
		if err != nil {
			c.mu.Lock()
			c.stats.Errors++
			c.mu.Unlock()
			c.sink.OnError(c.id, KindFatalIO, err)
			c.finishClose()
			return
		}
		if n == 0 {
			// Read timeout with no data: normal, re-check for shutdown.
			continue
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])

		c.mu.Lock()
		c.stats.BytesRx += int64(n)
		rawLines := c.fr.feed(raw)
		entries := make([]LineEntry, 0, len(rawLines))
		for _, line := range rawLines {
			idx := c.nextIndex
			c.nextIndex++
			entry := LineEntry{
				Timestamp: nowMillis(),
				Direction: DirectionRX,
				Data:      line,
				Index:     idx,
				ChannelID: c.id,
			}
			c.buf.push(entry)
			c.stats.LinesRx++
			entries = append(entries, entry)
		}
		c.mu.Unlock()

		c.sink.OnRead(c.id, raw, entries)
	}
}

// Send encodes data per mode, writes it to the device, and on success
// appends a tx LineEntry. Per spec, I/O write failures do not fail the
// call synchronously — they increment Errors and publish an error event;
// only NotConnected and InvalidEncoding are returned directly.
func (c *Channel) Send(data string, mode SendMode) error {
	c.mu.Lock()
	open := c.state == stateOpen && c.connected
	dev := c.dev
	c.mu.Unlock()
	if !open {
		return newErr("Send", KindNotConnected, nil)
	}

	payload, err := encode(data, mode)
	if err != nil {
		return newErr("Send", KindInvalidEncoding, err)
	}

	c.writeMu.Lock()
	n, err := dev.Write(payload)
	c.writeMu.Unlock()

	if err != nil {
		c.mu.Lock()
		c.stats.Errors++
		c.mu.Unlock()
		c.sink.OnError(c.id, KindTransientIO, err)
		return nil
	}

	c.mu.Lock()
	idx := c.nextIndex
	c.nextIndex++
	entry := LineEntry{
		Timestamp: nowMillis(),
		Direction: DirectionTX,
		Data:      data,
		Mode:      mode,
		Index:     idx,
		ChannelID: c.id,
	}
	c.buf.push(entry)
	c.stats.BytesTx += int64(n)
	c.stats.LinesTx++
	c.mu.Unlock()

	c.sink.OnSend(c.id, entry)
	return nil
}

// ClearBuffer empties the ring buffer and resets the next index to 0.
// Stats are unaffected.
func (c *Channel) ClearBuffer() {
	c.mu.Lock()
	c.buf.clear()
	c.nextIndex = 0
	c.mu.Unlock()
	c.sink.OnCleared(c.id)
}

// GetStatus returns a snapshot of the channel's current state.
func (c *Channel) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cfg *PortConfig
	if c.config != nil {
		cp := *c.config
		cfg = &cp
	}
	return Status{
		ChannelID:  c.id,
		Connected:  c.connected,
		Config:     cfg,
		Stats:      c.stats,
		BufferSize: c.buf.size(),
	}
}

// GetBuffer returns a copy of the ring buffer slice [start, start+count).
// count <= 0 means "to the end".
func (c *Channel) GetBuffer(start, count int) []LineEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.slice(start, count)
}

// IsConnected reports whether the channel currently has a live device.
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
