package memory

import "github.com/hupe1980/cognisphere/core"

// Options configure every store in this package.
type Options struct {
	// MaxMessages bounds the per-session history. Zero keeps everything.
	MaxMessages int
}

// applyWindow trims msgs to the newest max entries, keeping a leading system
// message in place.
func applyWindow(msgs []core.Message, max int) []core.Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	if msgs[0].Role == core.RoleSystem && max > 1 {
		out := make([]core.Message, 0, max)
		out = append(out, msgs[0])
		return append(out, msgs[len(msgs)-(max-1):]...)
	}
	out := make([]core.Message, max)
	copy(out, msgs[len(msgs)-max:])
	return out
}
