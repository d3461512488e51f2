// Package metrics instruments the fragmentation handler with Prometheus
// counters and gauges, the way the teacher's pkg/transport/statistics.go
// hand-rolled atomic counters did for DNP3 transport fragments, but
// exported through github.com/prometheus/client_golang so a driver can
// expose them on a real /metrics endpoint instead of a custom struct.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Direction labels the two transfer lists the handler maintains.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// Recorder records handler lifecycle events. The zero value is not usable;
// use NoOp() for a nil-safe sink, matching the teacher's
// logger.NewNoOpLogger() idiom for an optional instrumentation dependency.
type Recorder interface {
	TransferCreated(dir Direction)
	TransferCompleted(dir Direction)
	TransferDropped(dir Direction)
	Retransmission(dir Direction)
	FragmentReqSent()
	AckSent()
	AckReceived()
	InflightSet(dir Direction, n int)
}

// Prometheus is a Recorder backed by a prometheus.Registerer.
type Prometheus struct {
	created         *prometheus.CounterVec
	completed       *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	retransmissions *prometheus.CounterVec
	fragmentReqs    prometheus.Counter
	acksSent        prometheus.Counter
	acksReceived    prometheus.Counter
	inflight        *prometheus.GaugeVec
}

// NewPrometheus builds and registers the handler's metric family against
// reg. Pass prometheus.DefaultRegisterer for the global registry.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	p := &Prometheus{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transfers_created_total",
			Help: "Transfers created, by direction.",
		}, []string{"direction"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transfers_completed_total",
			Help: "Transfers that reached completion, by direction.",
		}, []string{"direction"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transfers_dropped_total",
			Help: "Transfers evicted after timing out, by direction.",
		}, []string{"direction"}),
		retransmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "retransmissions_total",
			Help: "Fragment retransmissions and retransmit probes sent, by direction.",
		}, []string{"direction"}),
		fragmentReqs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fragment_reqs_total",
			Help: "FRAGMENT_REQ messages emitted.",
		}),
		acksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "acks_sent_total",
			Help: "FRAGMENT_ACK messages emitted.",
		}),
		acksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "acks_received_total",
			Help: "FRAGMENT_ACK messages received for our outgoing transfers.",
		}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "inflight_transfers",
			Help: "Transfers currently tracked, by direction.",
		}, []string{"direction"}),
	}
	reg.MustRegister(p.created, p.completed, p.dropped, p.retransmissions,
		p.fragmentReqs, p.acksSent, p.acksReceived, p.inflight)
	return p
}

func (p *Prometheus) TransferCreated(dir Direction)   { p.created.WithLabelValues(string(dir)).Inc() }
func (p *Prometheus) TransferCompleted(dir Direction)  { p.completed.WithLabelValues(string(dir)).Inc() }
func (p *Prometheus) TransferDropped(dir Direction)    { p.dropped.WithLabelValues(string(dir)).Inc() }
func (p *Prometheus) Retransmission(dir Direction)     { p.retransmissions.WithLabelValues(string(dir)).Inc() }
func (p *Prometheus) FragmentReqSent()                 { p.fragmentReqs.Inc() }
func (p *Prometheus) AckSent()                         { p.acksSent.Inc() }
func (p *Prometheus) AckReceived()                     { p.acksReceived.Inc() }
func (p *Prometheus) InflightSet(dir Direction, n int) { p.inflight.WithLabelValues(string(dir)).Set(float64(n)) }

type noop struct{}

// NoOp returns a Recorder that discards everything, the default when a
// Handler is built without a metrics registry.
func NoOp() Recorder { return noop{} }

func (noop) TransferCreated(Direction)   {}
func (noop) TransferCompleted(Direction) {}
func (noop) TransferDropped(Direction)   {}
func (noop) Retransmission(Direction)    {}
func (noop) FragmentReqSent()            {}
func (noop) AckSent()                    {}
func (noop) AckReceived()                {}
func (noop) InflightSet(Direction, int)  {}
