// Package metrics exposes optional Prometheus counters for the CLI and any
// embedding service. Every method is nil-safe: a nil *Metrics is valid and
// simply does nothing, so library code never has to branch on whether a
// caller wired metrics up.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters perdix reports. It is
// deliberately not a core dependency of btree/rtree/textindex — those
// packages take no *Metrics parameter — so it is wired only at the CLI
// layer where a command chooses to report.
type Metrics struct {
	NodesWritten   prometheus.Counter
	CompactionRuns prometheus.Counter
	BytesSaved     prometheus.Counter
}

// New registers and returns a Metrics bound to reg. Passing a nil registry
// returns nil, which every method below tolerates.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		NodesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perdix_nodes_written_total",
			Help: "Number of index node records appended across all trees.",
		}),
		CompactionRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perdix_compaction_runs_total",
			Help: "Number of Compact invocations across all indexes.",
		}),
		BytesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perdix_compaction_bytes_saved_total",
			Help: "Cumulative bytes reclaimed by Compact across all indexes.",
		}),
	}
	reg.MustRegister(m.NodesWritten, m.CompactionRuns, m.BytesSaved)
	return m
}

func (m *Metrics) IncNodesWritten() {
	if m == nil {
		return
	}
	m.NodesWritten.Inc()
}

func (m *Metrics) IncCompactionRuns() {
	if m == nil {
		return
	}
	m.CompactionRuns.Inc()
}

func (m *Metrics) AddBytesSaved(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesSaved.Add(float64(n))
}
