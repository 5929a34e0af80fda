package macro

import (
	"context"
	"strings"
	"time"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
)

// Sender is the subset of the Channel Manager the executor needs. Defined
// here, rather than depending on *channel.Manager directly, so tests can
// substitute a recording fake.
type Sender interface {
	Send(channelID string, data string, mode channel.SendMode) error
}

// Executor plays back stored Macros against a channel.
type Executor struct {
	sender Sender
}

// NewExecutor builds an Executor writing through sender.
func NewExecutor(sender Sender) *Executor {
	return &Executor{sender: sender}
}

// Run plays m back on channelID, substituting paramValues into each
// command's data and honouring repeatCount and inter-command delays. It
// returns a channel.Error with KindMacroAborted if any send fails, and
// stops sending (but does not return an error) if ctx is cancelled mid-run.
func (e *Executor) Run(ctx context.Context, m Macro, channelID string, paramValues map[string]string) error {
	for iter := 0; iter < m.RepeatCount; iter++ {
		for i, cmd := range m.Commands {
			if ctx.Err() != nil {
				return nil
			}

			data := substitute(cmd.Data, paramValues)
			if err := e.sender.Send(channelID, data, cmd.Mode); err != nil {
				return channel.NewError("macro.Run", channel.KindMacroAborted, err)
			}

			last := iter == m.RepeatCount-1 && i == len(m.Commands)-1
			if cmd.DelayMs > 0 && !last {
				if !sleep(ctx, time.Duration(cmd.DelayMs)*time.Millisecond) {
					return nil
				}
			}
		}
	}
	return nil
}

// sleep blocks for d or until ctx is cancelled, reporting which happened
// first. A cancelled sleep returns false so the caller can stop cleanly.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// substitute replaces every {{name}} literal in data with the matching
// value from params; placeholders with no matching entry are left as-is.
func substitute(data string, params map[string]string) string {
	if len(params) == 0 {
		return data
	}
	var b strings.Builder
	rest := data
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start

		b.WriteString(rest[:start])
		name := rest[start+2 : end]
		if val, ok := params[name]; ok {
			b.WriteString(val)
		} else {
			b.WriteString("{{")
			b.WriteString(name)
			b.WriteString("}}")
		}
		rest = rest[end+2:]
	}
	return b.String()
}
