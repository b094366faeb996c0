// Package observability implements a Prometheus-backed ports.Observability,
// grounded verbatim in the teacher's PromObs counter/gauge/histogram map
// pattern, with the metric set renamed to the dispatcher's domain.
package observability

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"txflow/internal/ports"
)

// PromObs implements ports.Observability over a fixed set of Prometheus
// collectors, registered once at construction.
type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers and returns the dispatcher's metric set against the
// default Prometheus registry.
func NewPromObs() *PromObs {
	batchesSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txflow_batches_submitted_total",
		Help: "Batches that reached the gateway successfully.",
	})
	batchesDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txflow_batches_dropped_total",
		Help: "Batches permanently failed and dropped.",
	})
	opsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txflow_operations_dropped_total",
		Help: "Operations declared Invalid and dropped.",
	})
	opsMoved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txflow_operations_moved_total",
		Help: "Operations requeued to the tail of the remaining list after a transient under-funding failure.",
	})
	refillGas := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txflow_recovery_refill_gas_total",
		Help: "Gas refill transfers executed by the recovery actuator.",
	})
	establishTrust := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txflow_recovery_establish_trust_total",
		Help: "Trust-line creations executed by the recovery actuator.",
	})
	refillAsset := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txflow_recovery_refill_asset_total",
		Help: "Asset refill mint+transfers executed by the recovery actuator.",
	})
	queueLength := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "txflow_queue_length_total",
		Help: "Sum of queued batch counts across all distributor queues.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "txflow_batch_submit_latency_seconds",
		Help:    "Latency of a successful SendMany call.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	prometheus.MustRegister(batchesSubmitted, batchesDropped, opsDropped, opsMoved,
		refillGas, establishTrust, refillAsset, queueLength, latency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"txflow_batches_submitted_total": batchesSubmitted,
			"txflow_batches_dropped_total": batchesDropped,
			"txflow_operations_dropped_total": opsDropped,
			"txflow_operations_moved_total": opsMoved,
			"txflow_recovery_refill_gas_total": refillGas,
			"txflow_recovery_establish_trust_total": establishTrust,
			"txflow_recovery_refill_asset_total": refillAsset,
		},
		gauges: map[string]prometheus.Gauge{
			"txflow_queue_length_total": queueLength,
		},
		histos: map[string]prometheus.Observer{
			"txflow_batch_submit_latency_seconds": latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v %v", msg, err, fields)
		return
	}
	log.Printf("ERROR: %s %v", msg, fields)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v %v", msg, err, fields)
		return
	}
	log.Printf("CRITICAL: %s %v", msg, fields)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

var _ ports.Observability = (*PromObs)(nil)
