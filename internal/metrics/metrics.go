// ABOUTME: Prometheus collectors over listener statistics
// ABOUTME: Counters and gauges read from relay stats at scrape time
package metrics

import (
	"net/http"

	"github.com/Resonate-Protocol/onair-go/pkg/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "onair"

// Source provides the values exported as metrics
type Source interface {
	Stats() relay.Stats
	Connected() bool
}

// NewRegistry creates a registry with Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the registry in the Prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Register adds the listener collectors to reg
func Register(reg prometheus.Registerer, src Source) error {
	counter := func(subsystem, name, help string, value func(relay.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(src.Stats())) })
	}
	gauge := func(subsystem, name, help string, value func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, value)
	}

	all := []prometheus.Collector{
		counter("fragments", "received_total", "Audio fragments received from the server.",
			func(s relay.Stats) int64 { return s.Received }),
		counter("fragments", "written_total", "Audio fragments accepted by the sink.",
			func(s relay.Stats) int64 { return s.Written }),
		counter("fragments", "written_bytes_total", "Bytes accepted by the sink.",
			func(s relay.Stats) int64 { return s.WrittenBytes }),
		counter("fragments", "rejected_total", "Sink writes that were refused and retried.",
			func(s relay.Stats) int64 { return s.Rejected }),
		counter("fragments", "dropped_total", "Fragments dropped after repeated rejection.",
			func(s relay.Stats) int64 { return s.Dropped }),
		counter("fragments", "cleared_total", "Stale fragments discarded when a broadcast started.",
			func(s relay.Stats) int64 { return s.Cleared }),
		counter("sink", "stale_signals_total", "Completion signals ignored because their sink was replaced.",
			func(s relay.Stats) int64 { return s.StaleSignals }),
		counter("session", "force_stops_total", "Forced stops requested by the user.",
			func(s relay.Stats) int64 { return s.ForceStops }),

		gauge("queue", "fragments", "Fragments waiting for the sink.",
			func() float64 { return float64(src.Stats().Queued) }),
		gauge("queue", "bytes", "Bytes waiting for the sink.",
			func() float64 { return float64(src.Stats().QueuedBytes) }),
		gauge("sink", "state", "Sink lifecycle state (0 absent, 1 opening, 2 ready, 3 busy, 4 closed).",
			func() float64 { return float64(src.Stats().SinkState) }),
		gauge("session", "live", "Whether a broadcast is live.",
			func() float64 { return boolFloat(src.Stats().Live) }),
		gauge("server", "connected", "Whether the relay server connection is up.",
			func() float64 { return boolFloat(src.Connected()) }),
	}

	for _, c := range all {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
