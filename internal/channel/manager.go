package channel

import "sync"

// DefaultChannelID is the reserved fallback a caller gets when it omits a
// channelId.
const DefaultChannelID = "default"

// Manager owns the channelId → Channel mapping and is the single place new
// channels get allocated (lazily, on first reference to an id).
type Manager struct {
	sink          EventSink
	defaultConfig PortConfig

	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewManager builds a Manager. defaultConfig is applied by callers that
// open a channel without specifying one explicitly (the HTTP layer does
// this; Manager itself never defaults a config on their behalf).
func NewManager(sink EventSink, defaultConfig PortConfig) *Manager {
	return &Manager{
		sink:          sink,
		defaultConfig: defaultConfig,
		channels:      make(map[string]*Channel),
	}
}

// DefaultConfig returns the manager's default port configuration, with
// Device left blank for the caller to fill in.
func (m *Manager) DefaultConfig() PortConfig {
	return m.defaultConfig
}

func normalizeID(channelID string) string {
	if channelID == "" {
		return DefaultChannelID
	}
	return channelID
}

// Get returns the Channel for id, creating a fresh Closed one if absent.
func (m *Manager) Get(channelID string) *Channel {
	id := normalizeID(channelID)

	m.mu.RLock()
	ch, ok := m.channels[id]
	m.mu.RUnlock()
	if ok {
		return ch
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[id]; ok {
		return ch
	}
	ch = newChannel(id, m.sink)
	m.channels[id] = ch
	return ch
}

// Connect opens (or reopens) the channel identified by channelID.
func (m *Manager) Connect(channelID string, cfg PortConfig) error {
	return m.Get(channelID).Open(cfg)
}

// Disconnect closes the channel identified by channelID, if open.
func (m *Manager) Disconnect(channelID string) error {
	return m.Get(channelID).Close()
}

// Send writes data to the channel identified by channelID.
func (m *Manager) Send(channelID string, data string, mode SendMode) error {
	return m.Get(channelID).Send(data, mode)
}

// ClearBuffer empties the ring buffer of the channel identified by
// channelID.
func (m *Manager) ClearBuffer(channelID string) {
	m.Get(channelID).ClearBuffer()
}

// GetBuffer returns a slice of the ring buffer of the channel identified by
// channelID.
func (m *Manager) GetBuffer(channelID string, start, count int) []LineEntry {
	return m.Get(channelID).GetBuffer(start, count)
}

// GetStatus returns the status of the channel identified by channelID.
func (m *Manager) GetStatus(channelID string) Status {
	return m.Get(channelID).GetStatus()
}

// GetAllStatuses returns every known channel's status, keyed by channelId.
// A channel is known once referenced via Get, even if it was never opened.
func (m *Manager) GetAllStatuses() map[string]Status {
	m.mu.RLock()
	all := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		all = append(all, ch)
	}
	m.mu.RUnlock()

	out := make(map[string]Status, len(all))
	for _, ch := range all {
		st := ch.GetStatus()
		out[st.ChannelID] = st
	}
	return out
}

// RemoveChannel closes (if open) and forgets channelID entirely. A later
// reference to the same id allocates a fresh channel.
func (m *Manager) RemoveChannel(channelID string) error {
	id := normalizeID(channelID)

	m.mu.Lock()
	ch, ok := m.channels[id]
	if ok {
		delete(m.channels, id)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return ch.Close()
}

// ShutdownAll closes every open channel and waits for their reader tasks to
// finish. Called on process termination; cleanup is best-effort and never
// returns an error.
func (m *Manager) ShutdownAll() {
	m.mu.RLock()
	channels := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch *Channel) {
			defer wg.Done()
			_ = ch.Close()
		}(ch)
	}
	wg.Wait()
}
