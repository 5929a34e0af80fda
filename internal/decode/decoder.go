// Package decode is the Decoder Registry: a static set of protocol decoders
// fanned out over every raw chunk a channel reads.
package decode

// DecodedFrame is one decoder's interpretation of a byte slice, with the
// decoder's own name attached by the registry before it reaches a caller.
type DecodedFrame struct {
	Name     string                 `json:"name"`
	Protocol string                 `json:"protocol"`
	Fields   map[string]interface{} `json:"fields"`
	Display  string                 `json:"display"`
}

// Decoder is a pure, stateless unit: given the same bytes twice it must
// return structurally equal results. Decode returns (nil, false) when the
// bytes do not look like its protocol — that is not an error, just "no
// opinion".
type Decoder interface {
	Name() string
	Description() string
	Decode(b []byte) (*DecodedFrame, bool)
}
