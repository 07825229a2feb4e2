package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts domain events. A nil *Metrics records nothing.
type Metrics struct {
	uploads     *prometheus.CounterVec
	storeWrites *prometheus.CounterVec
}

// NewMetrics registers the service counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lore_uploads_total",
				Help: "Upload attempts by result.",
			},
			[]string{"result"},
		),
		storeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lore_store_writes_total",
				Help: "Collection writes by result.",
			},
			[]string{"result"},
		),
	}
	for _, c := range []prometheus.Collector{m.uploads, m.storeWrites} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) upload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) storeWrite(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(result).Inc()
}
