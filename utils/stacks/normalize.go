// Package stacks reduces crash stack traces to bounded label sequences and
// groups identical ones.
package stacks

import (
	"log/slog"
	"strings"

	"github.com/sthembisoo/unique-stacks/cmd/crashstats/types"
)

const (
	MissingSymbols = "<missing_symbols>"

	// Frames from the event loop onwards are the same for every crash on
	// the thread and say nothing about the crash itself.
	eventLoopPrefix = "MessageLoop::DoWork"
)

// Normalizer turns thread frames into a normalized stack.
type Normalizer struct {
	MaxFrames int
	Logger    *slog.Logger
}

// Normalize returns the labels of frames in order, stopping before the first
// event loop frame or once more than MaxFrames labels were collected. Up to
// MaxFrames+1 labels can be returned.
func (n Normalizer) Normalize(crashID string, frames []types.Frame) []string {
	var stack []string
	for i, frame := range frames {
		label := n.label(crashID, i, frame)
		if strings.HasPrefix(label, eventLoopPrefix) {
			break
		}
		stack = append(stack, label)
		if len(stack) > n.MaxFrames {
			break
		}
	}
	return stack
}

func (n Normalizer) label(crashID string, index int, frame types.Frame) string {
	switch {
	case frame.Normalized != "":
		return frame.Normalized
	case frame.Function != "":
		return frame.Function
	}

	if n.Logger != nil {
		n.Logger.Warn("frame has no symbols",
			"crash_id", crashID,
			"index", index,
			"frame", frame.Frame,
			"module", frame.Module,
			"offset", frame.Offset,
			"module_offset", frame.ModuleOffset)
	}
	return MissingSymbols
}
