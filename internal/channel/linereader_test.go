package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFramerFeedSingleLine(t *testing.T) {
	f := &framer{}
	lines := f.feed([]byte("hello\n"))
	assert.Equal(t, []string{"hello"}, lines)
}

func TestFramerFeedStripsTrailingCR(t *testing.T) {
	f := &framer{}
	lines := f.feed([]byte("hello\r\n"))
	assert.Equal(t, []string{"hello"}, lines)
}

func TestFramerFeedBuffersPartialLine(t *testing.T) {
	f := &framer{}
	lines := f.feed([]byte("hel"))
	assert.Empty(t, lines)

	lines = f.feed([]byte("lo\n"))
	assert.Equal(t, []string{"hello"}, lines)
}

func TestFramerFeedMultipleLinesInOneChunk(t *testing.T) {
	f := &framer{}
	lines := f.feed([]byte("a\nb\nc\n"))
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestFramerFeedEmptyLine(t *testing.T) {
	f := &framer{}
	lines := f.feed([]byte("\n"))
	assert.Equal(t, []string{""}, lines)
}

func TestFramerDiscardDropsPartialLine(t *testing.T) {
	f := &framer{}
	f.feed([]byte("partial"))
	f.discard()

	lines := f.feed([]byte("tail\n"))
	assert.Equal(t, []string{"tail"}, lines)
}

func TestFramerFeedOversizedLineSplitsAtCap(t *testing.T) {
	f := &framer{}
	data := make([]byte, maxFramedLine+10)
	for i := range data {
		data[i] = 'x'
	}
	data[len(data)-1] = '\n'

	lines := f.feed(data)
	require := assert.New(t)
	require.Len(lines, 2)
	require.Len(lines[0], maxFramedLine)
	require.Len(lines[1], 9)
}
