package gesture

import "time"

// debugStats holds per-dispatch timing and counts. Only populated when
// Engine debug mode is on.
type debugStats struct {
	ingestTime   time.Duration
	classifyTime time.Duration
	deliverTime  time.Duration
	records      int
	transitions  int
	events       int
}

// debugLog reports dispatch stats at debug level.
func (e *Engine) debugLog(stats debugStats) {
	if !e.debug {
		return
	}
	e.log.Debug("dispatch",
		"ingest", stats.ingestTime,
		"classify", stats.classifyTime,
		"deliver", stats.deliverTime,
		"total", stats.ingestTime+stats.classifyTime+stats.deliverTime,
		"records", stats.records,
		"transitions", stats.transitions,
		"events", stats.events,
		"queued", e.queue.len(),
	)
	e.debugCheckGroups()
}

// debugMaxOpenGroups is the open-group count above which debug mode warns.
// Groups normally close when their touches lift; a growing count means a
// backend is not reporting contact ends.
const debugMaxOpenGroups = 64

func (e *Engine) debugCheckGroups() {
	if len(e.groups) > debugMaxOpenGroups {
		e.log.Warn("open group count exceeds threshold", "groups", len(e.groups), "threshold", debugMaxOpenGroups)
	}
}

// SetDebugMode enables or disables debug mode for this engine. When
// enabled, use of a released object panics, open-group warnings are logged
// and per-dispatch timing stats are logged at debug level.
func (e *Engine) SetDebugMode(enabled bool) {
	e.debug = enabled
}
