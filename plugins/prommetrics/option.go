package prommetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/platoon/pkg/platoon"
)

// WithMetrics returns a platoon Option that records client activity in reg.
// It panics if the collectors cannot be registered, like prometheus.MustRegister.
//
// Usage:
//
//	client, err := platoon.New(cfg, prommetrics.WithMetrics(prometheus.DefaultRegisterer))
func WithMetrics(reg prometheus.Registerer) platoon.Option {
	r, err := NewRecorder(reg)
	if err != nil {
		panic(err)
	}
	return platoon.WithEventHandler(r)
}
