package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/delay"
)

// defines prometheus metrics
var (
	promCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delay_schedules_created_total",
		Help: "total number of schedules created",
	})

	promResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delay_schedules_resolved_total",
		Help: "total number of schedules resolved by status",
	}, []string{"status"})

	promFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delay_executions_failed_total",
		Help: "total number of rejected executions by code",
	}, []string{"code"})

	promPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "delay_schedules_pending",
		Help: "number of pending schedules",
	})

	promSweep = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "delay_expiry_sweep_size",
		Help:    "number of schedules expired in the last sweep",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 20, 30, 50, 100},
	})
)

func init() {
	delay.PromCollectors = append(delay.PromCollectors, promCreated,
		promResolved, promFailures, promPending, promSweep)
}
