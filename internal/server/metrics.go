package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

type metrics struct {
	connections prometheus.Gauge
	accepted    prometheus.Counter
	commands    *prometheus.CounterVec
	keys        prometheus.GaugeFunc
}

func newMetrics(reg prometheus.Registerer, store *Store) *metrics {
	m := &metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "furrdb_connections",
			Help: "Number of open client connections",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "furrdb_connections_accepted_total",
			Help: "Total number of accepted client connections",
		}),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrdb_commands_total",
				Help: "Total number of commands processed",
			},
			[]string{"verb", "result"}, // result: ok, error
		),
		keys: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "furrdb_keys",
				Help: "Number of keys in the store",
			},
			func() float64 { return float64(store.Len()) },
		),
	}

	if reg != nil {
		reg.MustRegister(m.connections, m.accepted, m.commands, m.keys)
	}
	return m
}

func (m *metrics) recordCommand(verb, result string) {
	m.commands.WithLabelValues(verb, result).Inc()
}
