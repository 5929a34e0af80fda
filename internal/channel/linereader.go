package channel

import "bytes"

// maxFramedLine is the implementation-defined cap on a single framed line.
// A device that never emits LF would otherwise grow the accumulator
// without bound; past this many bytes the prefix is emitted as its own
// entry and framing continues.
const maxFramedLine = 1 << 20 // 1 MiB

// framer accumulates raw device bytes and splits them into LF-terminated
// lines, stripping a trailing CR. It holds no reference to a Channel so it
// can be tested in isolation from device I/O.
type framer struct {
	buf []byte
}

// feed appends data to the accumulator and returns every complete line it
// can now extract, in order. Bytes left over (no terminator yet) stay
// buffered for the next call.
func (f *framer) feed(data []byte) []string {
	f.buf = append(f.buf, data...)

	var lines []string
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		switch {
		case idx >= 0 && idx < maxFramedLine:
			line := bytes.TrimSuffix(f.buf[:idx], []byte{'\r'})
			lines = append(lines, string(line))
			f.buf = f.buf[idx+1:]
		case len(f.buf) >= maxFramedLine:
			lines = append(lines, string(f.buf[:maxFramedLine]))
			f.buf = f.buf[maxFramedLine:]
		default:
			return lines
		}
	}
}

// discard drops any partial line left in the accumulator. Called on close:
// spec requires bytes pending at close() to be dropped, not flushed as a
// short line.
func (f *framer) discard() {
	f.buf = nil
}
