package channel

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice is an in-memory device substituted via the openDevice hook so
// the reader loop and line framer can be exercised without real hardware.
type fakeDevice struct {
	mu     sync.Mutex
	toRead [][]byte
	writes [][]byte
	closed bool
	readErr error
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readErr != nil {
		return 0, d.readErr
	}
	if len(d.toRead) == 0 {
		return 0, nil
	}
	chunk := d.toRead[0]
	d.toRead = d.toRead[1:]
	n := copy(p, chunk)
	return n, nil
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(p))
	copy(cp, p)
	d.writes = append(d.writes, cp)
	return len(p), nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) SetReadTimeout(t time.Duration) error { return nil }

func (d *fakeDevice) queue(chunks ...[]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.toRead = append(d.toRead, chunks...)
}

func (d *fakeDevice) failReads(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr = err
}

// recordingSink records every EventSink callback for assertions.
type recordingSink struct {
	mu        sync.Mutex
	connected []string
	disconnected []string
	reads     []struct {
		channelID string
		raw       []byte
		lines     []LineEntry
	}
	sends   []LineEntry
	errors  []Kind
	cleared []string
}

func (s *recordingSink) OnConnected(channelID string, cfg PortConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = append(s.connected, channelID)
}

func (s *recordingSink) OnDisconnected(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = append(s.disconnected, channelID)
}

func (s *recordingSink) OnRead(channelID string, raw []byte, lines []LineEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, struct {
		channelID string
		raw       []byte
		lines     []LineEntry
	}{channelID, raw, lines})
}

func (s *recordingSink) OnSend(channelID string, entry LineEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, entry)
}

func (s *recordingSink) OnError(channelID string, kind Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, kind)
}

func (s *recordingSink) OnCleared(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, channelID)
}

func (s *recordingSink) OnPortsChanged(ports []PortInfo) {}

func (s *recordingSink) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reads)
}

func withFakeDevice(t *testing.T, dev *fakeDevice) {
	t.Helper()
	prev := openDevice
	openDevice = func(cfg PortConfig) (device, error) {
		return dev, nil
	}
	t.Cleanup(func() { openDevice = prev })
}

func TestChannelOpenPublishesConnected(t *testing.T) {
	dev := &fakeDevice{}
	withFakeDevice(t, dev)

	sink := &recordingSink{}
	ch := newChannel("c1", sink)

	err := ch.Open(DefaultPortConfig("/dev/fake"))
	require.NoError(t, err)
	assert.True(t, ch.IsConnected())
	assert.Equal(t, []string{"c1"}, sink.connected)

	require.NoError(t, ch.Close())
}

func TestChannelOpenRejectsInvalidConfig(t *testing.T) {
	sink := &recordingSink{}
	ch := newChannel("c1", sink)

	err := ch.Open(PortConfig{})
	assert.Error(t, err)
	assert.Equal(t, KindInvalidConfig, KindOf(err))
}

func TestChannelOpenDeviceUnavailable(t *testing.T) {
	prev := openDevice
	openDevice = func(cfg PortConfig) (device, error) {
		return nil, errors.New("no such device")
	}
	t.Cleanup(func() { openDevice = prev })

	sink := &recordingSink{}
	ch := newChannel("c1", sink)

	err := ch.Open(DefaultPortConfig("/dev/fake"))
	require.Error(t, err)
	assert.Equal(t, KindDeviceUnavailable, KindOf(err))
	assert.False(t, ch.IsConnected())
}

func TestChannelOpenSerialisesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	var opens int32

	prev := openDevice
	openDevice = func(cfg PortConfig) (device, error) {
		atomic.AddInt32(&opens, 1)
		<-release
		return &fakeDevice{}, nil
	}
	t.Cleanup(func() { openDevice = prev })

	sink := &recordingSink{}
	ch := newChannel("c1", sink)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ch.Open(DefaultPortConfig("/dev/fake"))
		}(i)
	}

	// give the first Open a chance to claim stateOpening before letting
	// its openDevice call return, so the second Open races against it
	// while the device handle is still in flight.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&opens), "only one concurrent Open should reach the device")

	var succeeded, rejected int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			rejected++
			assert.Equal(t, KindDeviceUnavailable, KindOf(err))
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	require.NoError(t, ch.Close())
}

func TestChannelReadLoopFramesLines(t *testing.T) {
	dev := &fakeDevice{}
	dev.queue([]byte("line one\nline two\n"))
	withFakeDevice(t, dev)

	sink := &recordingSink{}
	ch := newChannel("c1", sink)
	require.NoError(t, ch.Open(DefaultPortConfig("/dev/fake")))

	require.Eventually(t, func() bool {
		return sink.readCount() > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, ch.Close())

	entries := ch.GetBuffer(0, 0)
	require.Len(t, entries, 2)
	assert.Equal(t, "line one", entries[0].Data)
	assert.Equal(t, "line two", entries[1].Data)
	assert.Equal(t, DirectionRX, entries[0].Direction)
}

func TestChannelReadLoopFatalErrorClosesChannel(t *testing.T) {
	dev := &fakeDevice{}
	dev.failReads(io.EOF)
	withFakeDevice(t, dev)

	sink := &recordingSink{}
	ch := newChannel("c1", sink)
	require.NoError(t, ch.Open(DefaultPortConfig("/dev/fake")))

	require.Eventually(t, func() bool {
		return !ch.IsConnected()
	}, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	gotDisconnect := len(sink.disconnected) == 1
	gotError := len(sink.errors) == 1 && sink.errors[0] == KindFatalIO
	sink.mu.Unlock()
	assert.True(t, gotDisconnect)
	assert.True(t, gotError)
}

func TestChannelSendWhenNotConnected(t *testing.T) {
	sink := &recordingSink{}
	ch := newChannel("c1", sink)

	err := ch.Send("hi", ModeASCII)
	require.Error(t, err)
	assert.Equal(t, KindNotConnected, KindOf(err))
}

func TestChannelSendEncodesAndRecordsEntry(t *testing.T) {
	dev := &fakeDevice{}
	withFakeDevice(t, dev)

	sink := &recordingSink{}
	ch := newChannel("c1", sink)
	require.NoError(t, ch.Open(DefaultPortConfig("/dev/fake")))

	err := ch.Send("hello", ModeASCII)
	require.NoError(t, err)

	require.NoError(t, ch.Close())

	dev.mu.Lock()
	writes := dev.writes
	dev.mu.Unlock()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte("hello\n"), writes[0])

	sink.mu.Lock()
	require.Len(t, sink.sends, 1)
	sink.mu.Unlock()
}

func TestChannelSendInvalidEncoding(t *testing.T) {
	dev := &fakeDevice{}
	withFakeDevice(t, dev)

	sink := &recordingSink{}
	ch := newChannel("c1", sink)
	require.NoError(t, ch.Open(DefaultPortConfig("/dev/fake")))

	err := ch.Send("zz", ModeHex)
	require.Error(t, err)
	assert.Equal(t, KindInvalidEncoding, KindOf(err))

	require.NoError(t, ch.Close())
}

func TestChannelClearBufferResetsIndexAndPublishes(t *testing.T) {
	dev := &fakeDevice{}
	withFakeDevice(t, dev)

	sink := &recordingSink{}
	ch := newChannel("c1", sink)
	require.NoError(t, ch.Open(DefaultPortConfig("/dev/fake")))
	require.NoError(t, ch.Send("a", ModeASCII))

	ch.ClearBuffer()
	assert.Empty(t, ch.GetBuffer(0, 0))

	require.NoError(t, ch.Send("b", ModeASCII))
	entries := ch.GetBuffer(0, 0)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(0), entries[0].Index)

	sink.mu.Lock()
	assert.Equal(t, []string{"c1"}, sink.cleared)
	sink.mu.Unlock()

	require.NoError(t, ch.Close())
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	withFakeDevice(t, dev)

	sink := &recordingSink{}
	ch := newChannel("c1", sink)
	require.NoError(t, ch.Open(DefaultPortConfig("/dev/fake")))

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	sink.mu.Lock()
	assert.Len(t, sink.disconnected, 1)
	sink.mu.Unlock()
}

func TestChannelGetStatusReflectsState(t *testing.T) {
	dev := &fakeDevice{}
	withFakeDevice(t, dev)

	sink := &recordingSink{}
	ch := newChannel("c1", sink)

	st := ch.GetStatus()
	assert.False(t, st.Connected)
	assert.Nil(t, st.Config)

	require.NoError(t, ch.Open(DefaultPortConfig("/dev/fake")))
	st = ch.GetStatus()
	assert.True(t, st.Connected)
	require.NotNil(t, st.Config)
	assert.Equal(t, "/dev/fake", st.Config.Device)

	require.NoError(t, ch.Close())
}
