package channel

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// device is the subset of go.bug.st/serial.Port the Channel runtime needs.
// Tests substitute it with an in-memory fake so the reader loop and line
// framer can be exercised without real hardware.
type device interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// openDevice is a package-level hook so tests can replace it with a fake
// device rather than touching the real driver. Production code never
// reassigns it outside of tests.
var openDevice = func(cfg PortConfig) (device, error) {
	port, err := serial.Open(cfg.Device, cfg.ToMode())
	if err != nil {
		return nil, err
	}
	// A bounded read timeout lets the reader loop notice context
	// cancellation and closed-channel shutdown promptly instead of
	// blocking forever on a silent line.
	if err := port.SetReadTimeout(200 * time.Millisecond); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}
