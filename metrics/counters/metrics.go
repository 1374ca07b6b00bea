package counters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "backend",
	Name:      "operations_total",
	Help:      "Total number of store operations by outcome.",
}, []string{"operation", "outcome"})

var delayHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "backend",
	Name:      "simulated_delay_seconds",
	Help:      "Injected latency per store operation.",
	Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 1, 2},
}, []string{"operation"})

var tableGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "backend",
	Name:      "table_rows",
	Help:      "Number of rows in the in-memory tables.",
}, []string{"table"})

var balanceCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "billing",
	Name:      "adjusted_cents_total",
	Help:      "Absolute amount of balance adjustments in cents.",
}, []string{"direction"})

var pageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pages",
	Name:      "errors_total",
	Help:      "Errors surfaced to page controllers.",
}, []string{"page"})

func ObserveOperation(operation, outcome string) {
	if len(operation) == 0 || len(outcome) == 0 {
		return
	}
	operationCounter.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
}

func ObserveDelay(operation string, seconds float64) {
	if len(operation) == 0 {
		return
	}
	delayHistogram.With(prometheus.Labels{"operation": operation}).Observe(seconds)
}

func ObserveTable(table string, rows int) {
	if len(table) == 0 {
		return
	}
	tableGauge.With(prometheus.Labels{"table": table}).Set(float64(rows))
}

// CountAdjustment records a balance change; positive amounts are payments, negative are refunds
func CountAdjustment(amountCents int) {
	direction := "payment"
	if amountCents < 0 {
		direction = "refund"
		amountCents = -amountCents
	}
	balanceCounter.With(prometheus.Labels{"direction": direction}).Add(float64(amountCents))
}

func CountPageError(page string) {
	if len(page) == 0 {
		return
	}
	pageErrors.With(prometheus.Labels{"page": page}).Inc()
}
