// Package macro stores and plays back parameterised send sequences against
// a channel.
package macro

import (
	"time"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/google/uuid"
)

// Command is one step of a Macro: a payload, its encoding, and the delay
// observed after sending it.
type Command struct {
	Data    string          `json:"data"`
	Mode    channel.SendMode `json:"mode"`
	DelayMs int             `json:"delayMs"`
}

// Macro is a named, stored command sequence with parameter placeholders.
// Id is assigned on create and immutable thereafter.
type Macro struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Commands    []Command `json:"commands"`
	RepeatCount int       `json:"repeatCount"`
	Params      []string  `json:"params"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// New builds a Macro with a freshly assigned id and timestamps, defaulting
// RepeatCount to 1 when unset.
func New(name string, commands []Command, repeatCount int, params []string) Macro {
	if repeatCount < 1 {
		repeatCount = 1
	}
	now := time.Now()
	return Macro{
		ID:          uuid.NewString(),
		Name:        name,
		Commands:    commands,
		RepeatCount: repeatCount,
		Params:      params,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
