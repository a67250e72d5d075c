// Package utils carries the ambient toolkit shared by every flow-field package:
// logging setup, build metadata, comparator helpers and the invariant facility.
//
// Invariants are conditions the code itself guarantees; a violated invariant is
// a bug in flow-field, never caller input. Think of what you would `assert` on,
// without crashing a live process over it: RaiseInvariant records an error log
// and bumps a monitoring counter so the violation pages someone, and the caller
// is still expected to bail out of the broken computation (early return, refuse
// the mutation). Conditions that depend on the outside world should not raise
// invariants; for example, a bad command argument or a missing roster is an
// ordinary error.

package utils

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promclient "github.com/prometheus/client_model/go"
)

var invariantsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "invariants_total",
	Help: "The total number of invariant violations",
}, []string{
	"module", // The module in which this invariant occurred.
	"type",   // The type of the invariant that occurred.
})

// RaiseInvariant reports a violated internal assumption. In test-mode builds it
// panics so the offending test fails loudly; in production it logs and counts.
func RaiseInvariant(module, invariantType, msg string, args ...any) {
	invariantsMetric.WithLabelValues(module, invariantType).Inc()
	slog.With("invariant", invariantType, "module", module).Error(msg, args...)
	if IsTestMode {
		panic("invariant violated: " + invariantType)
	}
}

// GetMetricValue returns the current count of the invariant metric labeled with
// `module` and `invariantType`. Tests use it to assert a violation was raised.
func GetMetricValue(module, invariantType string) int {
	var metric = &promclient.Metric{}
	if err := invariantsMetric.WithLabelValues(module, invariantType).Write(metric); err != nil {
		slog.Error(err.Error())
		return 0
	}
	return int(metric.Counter.GetValue())
}
