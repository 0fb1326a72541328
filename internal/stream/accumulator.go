// Package stream renders an LLM token stream into incrementally edited
// Telegram messages. It owns the buffering, flood-control, and pagination
// logic that keeps a response under the platform's per-message length cap
// while the UI stays visibly live.
package stream

import "strings"

// Cursor is the trailing glyph appended to in-progress renders to signal
// that generation is still running.
const Cursor = "▌"

// Default tuning for flush decisions. DefaultThreshold matches Telegram's
// hard per-message length limit.
const (
	DefaultThreshold = 4096
	DefaultCadence   = 30
)

// FlushDecision is the outcome of appending one delta to the accumulator.
type FlushDecision int

// Flush decisions, in priority order.
const (
	// NoFlush means the buffer can keep growing.
	NoFlush FlushDecision = iota

	// SizeFlush means the display buffer reached the divide threshold and
	// must be cut to a full page. Takes priority over CadenceFlush.
	SizeFlush

	// CadenceFlush means enough deltas arrived since the last flush that
	// a preview edit should keep the UI live.
	CadenceFlush
)

// String returns the decision name for logs.
func (d FlushDecision) String() string {
	switch d {
	case SizeFlush:
		return "size"
	case CadenceFlush:
		return "cadence"
	default:
		return "none"
	}
}

// ChunkAccumulator buffers stream deltas and decides when buffered text
// must be emitted. It tracks two buffers: the display buffer, holding text
// not yet dispatched to the active message, and the full result, an
// append-only transcript of every delta for final persistence.
//
// Lengths are counted in runes so a page cut never splits a code point.
// Not safe for concurrent use; each session owns its own accumulator.
type ChunkAccumulator struct {
	threshold int
	cadence   int
	cursor    string

	display []rune
	full    strings.Builder
	counter int
}

// NewChunkAccumulator creates an accumulator. Non-positive threshold or
// cadence fall back to the defaults.
func NewChunkAccumulator(threshold, cadence int, cursor string) *ChunkAccumulator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	if cursor == "" {
		cursor = Cursor
	}
	return &ChunkAccumulator{
		threshold: threshold,
		cadence:   cadence,
		cursor:    cursor,
	}
}

// Append adds delta to both buffers and returns the flush decision. The
// cadence counter resets on every flush decision, of either kind.
func (a *ChunkAccumulator) Append(delta string) FlushDecision {
	a.display = append(a.display, []rune(delta)...)
	a.full.WriteString(delta)
	a.counter++

	switch {
	case len(a.display) >= a.threshold:
		a.counter = 0
		return SizeFlush
	case a.counter >= a.cadence:
		a.counter = 0
		return CadenceFlush
	default:
		return NoFlush
	}
}

// SizePending reports whether the display buffer still holds a full page.
// A single oversized delta can leave more than one page buffered.
func (a *ChunkAccumulator) SizePending() bool {
	return len(a.display) >= a.threshold
}

// DrainForSizeFlush cuts the display buffer at exactly the threshold.
// The first slice is returned for verbatim dispatch; the remainder becomes
// the new display buffer. This is a hard cut, not word-aware, matching the
// platform's hard cap.
func (a *ChunkAccumulator) DrainForSizeFlush() (emit, remainder string) {
	cut := min(a.threshold, len(a.display))
	emit = string(a.display[:cut])
	a.display = append(a.display[:0:0], a.display[cut:]...)
	return emit, string(a.display)
}

// Restore puts a previously drained slice back at the front of the display
// buffer. Used when the edit that would have committed the slice failed;
// the text stays pending and is represented again at the next flush.
func (a *ChunkAccumulator) Restore(emit string) {
	a.display = append([]rune(emit), a.display...)
}

// DrainForCadenceFlush returns the entire display buffer with the cursor
// marker appended. This is a preview, not a commit: the buffer's content is
// retained unchanged.
func (a *ChunkAccumulator) DrainForCadenceFlush() string {
	return string(a.display) + a.cursor
}

// DrainRemainder returns whatever is left in the display buffer and clears
// it. Called once after the token stream ends.
func (a *ChunkAccumulator) DrainRemainder() string {
	s := string(a.display)
	a.display = nil
	return s
}

// FullResult returns the complete response accumulated so far.
func (a *ChunkAccumulator) FullResult() string {
	return a.full.String()
}

// cutAt splits s after n runes. tail is empty when s fits.
func cutAt(s string, n int) (head, tail string) {
	runes := []rune(s)
	if len(runes) <= n {
		return s, ""
	}
	return string(runes[:n]), string(runes[n:])
}
