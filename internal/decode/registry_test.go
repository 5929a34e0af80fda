package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicDecoder struct{}

func (panicDecoder) Name() string        { return "panic" }
func (panicDecoder) Description() string { return "always panics" }
func (panicDecoder) Decode(b []byte) (*DecodedFrame, bool) {
	panic("boom")
}

func TestNewRegistryDefaultsToAllBuiltins(t *testing.T) {
	r := NewRegistry(nil, nil)
	plugins := r.Plugins()
	require.Len(t, plugins, len(builtins()))
}

func TestRegistryReloadFiltersToEnabled(t *testing.T) {
	r := NewRegistry(nil, []string{"Modbus RTU"})
	plugins := r.Plugins()
	require.Len(t, plugins, 1)
	assert.Equal(t, "Modbus RTU", plugins[0].Name)
}

func TestRegistryReloadUnknownNameYieldsEmpty(t *testing.T) {
	r := NewRegistry(nil, []string{"does-not-exist"})
	assert.Empty(t, r.Plugins())
}

func TestRegistryDecodeAllCollectsMatches(t *testing.T) {
	r := NewRegistry(nil, nil)

	payload := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	crc := modbusCRC16(payload)
	frame := append(payload, byte(crc), byte(crc>>8))

	frames := r.DecodeAll(frame)
	require.Len(t, frames, 1)
	assert.Equal(t, "Modbus RTU", frames[0].Name)
}

func TestRegistryDecodeAllSkipsTooShort(t *testing.T) {
	r := NewRegistry(nil, nil)
	frames := r.DecodeAll([]byte{0x01})
	assert.Empty(t, frames)
}

func TestRegistrySafeDecodeRecoversFromPanic(t *testing.T) {
	r := &Registry{}
	selected := []Decoder{panicDecoder{}}
	r.active.Store(&selected)

	frames := r.DecodeAll([]byte{0x01, 0x02, 0x03, 0x04})
	assert.Empty(t, frames)
}
