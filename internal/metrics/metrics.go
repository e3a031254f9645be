package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pavadmin/pavadmin/internal/rcon"
)

// Registry holds Prometheus metrics for one RCON client and implements
// rcon.Observer.
type Registry struct {
	reg *prometheus.Registry

	connected  prometheus.Gauge
	state      *prometheus.GaugeVec
	commands   *prometheus.CounterVec
	latency    prometheus.Histogram
	keepalives prometheus.Counter
	orphaned   prometheus.Counter
	orphanSize prometheus.Counter
	reconnects prometheus.Counter
}

var states = []rcon.State{
	rcon.StateDisconnected,
	rcon.StateConnecting,
	rcon.StateReady,
	rcon.StateDisconnecting,
}

// NewRegistry creates and registers all collectors. server labels every series
// so several agents can share one Prometheus.
func NewRegistry(server string) *Registry {
	if server == "" {
		server = "default"
	}
	labels := prometheus.Labels{"server": server}
	r := &Registry{reg: prometheus.NewRegistry()}

	r.connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "pavadmin_rcon_connected",
		Help:        "1 while an authenticated RCON session is open.",
		ConstLabels: labels,
	})
	r.state = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "pavadmin_rcon_state",
		Help:        "Current connection lifecycle state (1 for the active state).",
		ConstLabels: labels,
	}, []string{"state"})
	r.commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pavadmin_rcon_commands_total",
		Help:        "Completed commands by result.",
		ConstLabels: labels,
	}, []string{"result"})
	r.latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "pavadmin_rcon_command_duration_seconds",
		Help:        "Time from sending a command to its completion.",
		ConstLabels: labels,
		Buckets:     []float64{.05, .075, .1, .15, .25, .5, .75, 1, 2.5},
	})
	r.keepalives = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pavadmin_rcon_keepalives_total",
		Help:        "Keepalive tokens echoed back to the server.",
		ConstLabels: labels,
	})
	r.orphaned = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pavadmin_rcon_orphaned_replies_total",
		Help:        "Replies received with no command waiting.",
		ConstLabels: labels,
	})
	r.orphanSize = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pavadmin_rcon_orphaned_reply_bytes_total",
		Help:        "Bytes received with no command waiting.",
		ConstLabels: labels,
	})
	r.reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pavadmin_rcon_reconnect_failures_total",
		Help:        "Failed reconnect attempts.",
		ConstLabels: labels,
	})

	r.reg.MustRegister(
		r.connected,
		r.state,
		r.commands,
		r.latency,
		r.keepalives,
		r.orphaned,
		r.orphanSize,
		r.reconnects,
	)
	r.setState(rcon.StateDisconnected)
	return r
}

func (r *Registry) setState(to rcon.State) {
	for _, s := range states {
		v := 0.0
		if s == to {
			v = 1
		}
		r.state.WithLabelValues(s.String()).Set(v)
	}
	// Connecting covers the dial, which may fail before any socket exists.
	switch to {
	case rcon.StateReady, rcon.StateDisconnecting:
		r.connected.Set(1)
	default:
		r.connected.Set(0)
	}
}

func (r *Registry) StateChanged(_, to rcon.State, _ error) {
	r.setState(to)
}

func (r *Registry) CommandCompleted(kind rcon.ErrorKind, elapsed time.Duration) {
	r.commands.WithLabelValues(kind.String()).Inc()
	if elapsed > 0 {
		r.latency.Observe(elapsed.Seconds())
	}
}

func (r *Registry) KeepaliveEchoed() { r.keepalives.Inc() }

func (r *Registry) OrphanedReply(size int) {
	r.orphaned.Inc()
	r.orphanSize.Add(float64(size))
}

func (r *Registry) ReconnectFailed(error) { r.reconnects.Inc() }

// Handler returns the HTTP handler for the Prometheus text format, including
// Go runtime and process collectors.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{r.reg, prometheus.DefaultGatherer}, promhttp.HandlerOpts{})
}
