package market

import "strings"

// History keeps a bounded per-symbol buffer of recent snapshots,
// most-recent-first. It is owned by the trading loop and never shared
// across goroutines.
type History struct {
	max     int
	buffers map[string][]Snapshot
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = 60
	}
	return &History{max: max, buffers: make(map[string][]Snapshot)}
}

// Push prepends snap to its symbol's buffer, dropping the oldest entry
// once the buffer is full.
func (h *History) Push(snap Snapshot) {
	sym := normalizeSymbol(snap.Symbol)
	if sym == "" {
		return
	}
	buf := h.buffers[sym]
	buf = append([]Snapshot{snap}, buf...)
	if len(buf) > h.max {
		buf = buf[:h.max]
	}
	h.buffers[sym] = buf
}

// Recent returns the buffered snapshots for symbol, most-recent-first.
// The returned slice is a copy; mutating it does not affect the buffer.
func (h *History) Recent(symbol string) []Snapshot {
	buf := h.buffers[normalizeSymbol(symbol)]
	if len(buf) == 0 {
		return nil
	}
	out := make([]Snapshot, len(buf))
	copy(out, buf)
	return out
}

// LastPrice reports the most recent known price for symbol, if any.
func (h *History) LastPrice(symbol string) (float64, bool) {
	buf := h.buffers[normalizeSymbol(symbol)]
	if len(buf) == 0 {
		return 0, false
	}
	return buf[0].Price, true
}

// Restore replaces the buffer for symbol, e.g. when rehydrating from the
// state store after a restart. Snapshots must be most-recent-first.
func (h *History) Restore(symbol string, snaps []Snapshot) {
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return
	}
	if len(snaps) > h.max {
		snaps = snaps[:h.max]
	}
	buf := make([]Snapshot, len(snaps))
	copy(buf, snaps)
	h.buffers[sym] = buf
}

// Dump copies every buffer, keyed by symbol, for persistence.
func (h *History) Dump() map[string][]Snapshot {
	out := make(map[string][]Snapshot, len(h.buffers))
	for sym, buf := range h.buffers {
		cp := make([]Snapshot, len(buf))
		copy(cp, buf)
		out[sym] = cp
	}
	return out
}

// Symbols lists every symbol with at least one buffered snapshot.
func (h *History) Symbols() []string {
	out := make([]string, 0, len(h.buffers))
	for sym := range h.buffers {
		out = append(out, sym)
	}
	return out
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
