package gesture

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors describing engine activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	events      *prometheus.CounterVec
	frames      prometheus.Counter
	groupsOpen  prometheus.Gauge
	rejections  prometheus.Counter
	dispatchDur prometheus.Histogram
}

// MustNewMetrics builds the engine collectors and registers them with reg
// (the default registerer when nil). Collectors already registered by
// another engine are reused, so several engines can share one registry.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gesture",
			Subsystem: "engine",
			Name:      "events_total",
			Help:      "Events produced, by event type.",
		},
		[]string{"type"},
	)
	frames := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gesture",
		Subsystem: "engine",
		Name:      "input_frames_total",
		Help:      "Input frames ingested.",
	})
	groupsOpen := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gesture",
		Subsystem: "engine",
		Name:      "groups_open",
		Help:      "Touch groups currently under evaluation.",
	})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gesture",
		Subsystem: "engine",
		Name:      "rejections_total",
		Help:      "Gestures rejected by consumers.",
	})
	dispatchDur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gesture",
		Subsystem: "engine",
		Name:      "dispatch_seconds",
		Help:      "Time spent in one DispatchEvents call.",
		Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025},
	})

	collectors := []prometheus.Collector{events, frames, groupsOpen, rejections, dispatchDur}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				panic(err)
			}
			switch c {
			case events:
				events = already.ExistingCollector.(*prometheus.CounterVec)
			case frames:
				frames = already.ExistingCollector.(prometheus.Counter)
			case groupsOpen:
				groupsOpen = already.ExistingCollector.(prometheus.Gauge)
			case rejections:
				rejections = already.ExistingCollector.(prometheus.Counter)
			case dispatchDur:
				dispatchDur = already.ExistingCollector.(prometheus.Histogram)
			}
		}
	}
	return &Metrics{
		events:      events,
		frames:      frames,
		groupsOpen:  groupsOpen,
		rejections:  rejections,
		dispatchDur: dispatchDur,
	}
}

func (m *Metrics) event(t EventType) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) inputFrame() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

func (m *Metrics) groupOpened() {
	if m == nil {
		return
	}
	m.groupsOpen.Inc()
}

func (m *Metrics) groupClosed() {
	if m == nil {
		return
	}
	m.groupsOpen.Dec()
}

func (m *Metrics) rejected() {
	if m == nil {
		return
	}
	m.rejections.Inc()
}

func (m *Metrics) dispatched(d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchDur.Observe(d.Seconds())
}
