package decode

import (
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// PluginInfo is the public, client-facing description of a registered
// decoder (the WS plugins:list event and GET /plugins REST endpoint).
type PluginInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// builtins is the complete set of decoders this binary ships. There is no
// dynamic loading: enabling/disabling a decoder is a config-time choice
// (Registry.Reload's enabled set), never arbitrary code from disk.
func builtins() []Decoder {
	return []Decoder{
		NewModbusRTUDecoder(),
	}
}

// Registry holds the active decoder set and fans a byte slice out over all
// of them. The set is swapped atomically so a Reload never leaves DecodeAll
// observing a half-updated list.
type Registry struct {
	logger *log.Logger
	active atomic.Pointer[[]Decoder]
}

// NewRegistry builds a Registry with every built-in decoder whose name is
// in enabled. A nil or empty enabled set means "all built-ins".
func NewRegistry(logger *log.Logger, enabled []string) *Registry {
	r := &Registry{logger: logger}
	r.Reload(enabled)
	return r
}

// Reload replaces the active decoder set from the built-in pool, filtered
// to enabled. Decoders already in flight inside DecodeAll keep using the
// set they captured; there is no torn read.
func (r *Registry) Reload(enabled []string) {
	var filter map[string]bool
	if len(enabled) > 0 {
		filter = make(map[string]bool, len(enabled))
		for _, name := range enabled {
			filter[name] = true
		}
	}

	selected := make([]Decoder, 0, len(builtins()))
	for _, d := range builtins() {
		if filter == nil || filter[d.Name()] {
			selected = append(selected, d)
		}
	}
	r.active.Store(&selected)
}

// Plugins lists the currently active decoders for client consumption.
func (r *Registry) Plugins() []PluginInfo {
	active := *r.active.Load()
	out := make([]PluginInfo, 0, len(active))
	for _, d := range active {
		out = append(out, PluginInfo{Name: d.Name(), Description: d.Description()})
	}
	return out
}

// DecodeAll fans b out over every active decoder, in registration order,
// collecting non-null results. A decoder that panics or whose Decode call
// otherwise fails is logged and skipped; it never affects the others.
func (r *Registry) DecodeAll(b []byte) []DecodedFrame {
	active := *r.active.Load()
	var out []DecodedFrame
	for _, d := range active {
		frame := r.safeDecode(d, b)
		if frame != nil {
			out = append(out, *frame)
		}
	}
	return out
}

func (r *Registry) safeDecode(d Decoder, b []byte) (frame *DecodedFrame) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Warn("decoder panicked, skipping", "decoder", d.Name(), "recover", rec)
			}
			frame = nil
		}
	}()

	result, ok := d.Decode(b)
	if !ok || result == nil {
		return nil
	}
	result.Name = d.Name()
	return result
}
