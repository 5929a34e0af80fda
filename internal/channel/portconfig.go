package channel

import (
	"encoding/json"
	"fmt"

	"go.bug.st/serial"
)

// Parity enumerates the parity settings a PortConfig accepts.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return "none"
	}
}

// MarshalJSON renders a Parity as its wire-format string.
func (p Parity) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// ParseParity maps a wire-format string to a Parity, defaulting to none on
// an empty string.
func ParseParity(s string) (Parity, error) {
	switch s {
	case "", "none":
		return ParityNone, nil
	case "even":
		return ParityEven, nil
	case "odd":
		return ParityOdd, nil
	case "mark":
		return ParityMark, nil
	case "space":
		return ParitySpace, nil
	default:
		return ParityNone, fmt.Errorf("unknown parity %q", s)
	}
}

// StopBits enumerates the stop-bit settings a PortConfig accepts.
type StopBits int

const (
	StopBits1 StopBits = iota
	StopBits1Point5
	StopBits2
)

func (s StopBits) String() string {
	switch s {
	case StopBits1Point5:
		return "1.5"
	case StopBits2:
		return "2"
	default:
		return "1"
	}
}

// MarshalJSON renders StopBits as the wire-format number (1, 1.5 or 2), not
// its string form, matching how PortConfig.StopBits is accepted on input.
func (s StopBits) MarshalJSON() ([]byte, error) {
	switch s {
	case StopBits1Point5:
		return json.Marshal(1.5)
	case StopBits2:
		return json.Marshal(2)
	default:
		return json.Marshal(1)
	}
}

// ParseStopBits maps a wire-format number to StopBits, defaulting to 1 when
// given the zero value.
func ParseStopBits(v float64) (StopBits, error) {
	switch v {
	case 0, 1:
		return StopBits1, nil
	case 1.5:
		return StopBits1Point5, nil
	case 2:
		return StopBits2, nil
	default:
		return StopBits1, fmt.Errorf("unknown stop bits %v", v)
	}
}

// FlowControl enumerates the flow-control settings a PortConfig accepts.
//
// go.bug.st/serial's Mode does not expose hardware (RTS/CTS) or software
// (XON/XOFF) flow control at the driver level; the value is still recorded
// on the config and surfaced in status/export so clients see what they
// asked for, but ToMode does not pass it to the driver, so the port always
// opens without flow control.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlRTSCTS
	FlowControlXonXoff
)

func (f FlowControl) String() string {
	switch f {
	case FlowControlRTSCTS:
		return "rtscts"
	case FlowControlXonXoff:
		return "xonxoff"
	default:
		return "none"
	}
}

// MarshalJSON renders a FlowControl as its wire-format string.
func (f FlowControl) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// ParseFlowControl maps a wire-format string to a FlowControl, defaulting
// to none on an empty string.
func ParseFlowControl(s string) (FlowControl, error) {
	switch s {
	case "", "none":
		return FlowControlNone, nil
	case "rtscts":
		return FlowControlRTSCTS, nil
	case "xonxoff":
		return FlowControlXonXoff, nil
	default:
		return FlowControlNone, fmt.Errorf("unknown flow control %q", s)
	}
}

// PortConfig is a fully populated, immutable-once-open device configuration.
// Callers that only know a subset of fields should go through
// DefaultPortConfig and override, rather than constructing a sparse value by
// hand — this keeps "what the driver actually used" unambiguous.
type PortConfig struct {
	Device      string      `json:"device"`
	BaudRate    int         `json:"baudRate"`
	DataBits    int         `json:"dataBits"`
	StopBits    StopBits    `json:"stopBits"`
	Parity      Parity      `json:"parity"`
	FlowControl FlowControl `json:"flowControl"`
}

// DefaultPortConfig returns the spec-mandated defaults: 115200/8/N/1/none.
func DefaultPortConfig(device string) PortConfig {
	return PortConfig{
		Device:      device,
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    StopBits1,
		Parity:      ParityNone,
		FlowControl: FlowControlNone,
	}
}

// PortConfigInput is the sparse, partially-specified shape a connect request
// arrives in over the wire: any field the caller omits is filled from
// defaults by Build rather than left as a misleading zero value on
// PortConfig itself. This is the builder spec.md's "sparse config objects"
// note calls for.
type PortConfigInput struct {
	Device      string   `json:"device"`
	BaudRate    *int     `json:"baudRate,omitempty"`
	DataBits    *int     `json:"dataBits,omitempty"`
	StopBits    *float64 `json:"stopBits,omitempty"`
	Parity      *string  `json:"parity,omitempty"`
	FlowControl *string  `json:"flowControl,omitempty"`
}

// Build applies defaults to every field in is not set, validating any
// supplied enum strings/numbers along the way.
func (in PortConfigInput) Build(defaults PortConfig) (PortConfig, error) {
	cfg := defaults
	if in.Device != "" {
		cfg.Device = in.Device
	}
	if in.BaudRate != nil {
		cfg.BaudRate = *in.BaudRate
	}
	if in.DataBits != nil {
		cfg.DataBits = *in.DataBits
	}
	if in.StopBits != nil {
		sb, err := ParseStopBits(*in.StopBits)
		if err != nil {
			return PortConfig{}, newErr("PortConfigInput.Build", KindInvalidConfig, err)
		}
		cfg.StopBits = sb
	}
	if in.Parity != nil {
		p, err := ParseParity(*in.Parity)
		if err != nil {
			return PortConfig{}, newErr("PortConfigInput.Build", KindInvalidConfig, err)
		}
		cfg.Parity = p
	}
	if in.FlowControl != nil {
		fc, err := ParseFlowControl(*in.FlowControl)
		if err != nil {
			return PortConfig{}, newErr("PortConfigInput.Build", KindInvalidConfig, err)
		}
		cfg.FlowControl = fc
	}
	return cfg, nil
}

// Validate rejects parameter combinations the driver cannot open.
func (c PortConfig) Validate() error {
	if c.Device == "" {
		return newErr("PortConfig.Validate", KindInvalidConfig, fmt.Errorf("device path is required"))
	}
	if c.BaudRate <= 0 {
		return newErr("PortConfig.Validate", KindInvalidConfig, fmt.Errorf("baud rate must be positive, got %d", c.BaudRate))
	}
	switch c.DataBits {
	case 5, 6, 7, 8:
	default:
		return newErr("PortConfig.Validate", KindInvalidConfig, fmt.Errorf("data bits must be 5, 6, 7 or 8, got %d", c.DataBits))
	}
	return nil
}

// ToMode converts a validated PortConfig into the go.bug.st/serial Mode the
// driver actually opens with.
func (c PortConfig) ToMode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}

	switch c.Parity {
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityMark:
		mode.Parity = serial.MarkParity
	case ParitySpace:
		mode.Parity = serial.SpaceParity
	default:
		mode.Parity = serial.NoParity
	}

	switch c.StopBits {
	case StopBits1Point5:
		mode.StopBits = serial.OnePointFiveStopBits
	case StopBits2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	return mode
}
