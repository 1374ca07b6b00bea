package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "server",
	Name:      "event_clients_active",
	Help:      "Number of connected event feed clients",
})

var droppedCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "server",
	Name:      "event_messages_dropped_total",
	Help:      "Messages not delivered because a client queue was full.",
})

var requestCounts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "server",
	Name:      "api_requests_total",
	Help:      "Total number of api requests by route and status code.",
}, []string{"route", "code"})

func observeConnections(count int) {
	connectionsGauge.Set(float64(count))
}

func countDropped() {
	droppedCounter.Inc()
}

func observeRequest(route string, code int) {
	if len(route) == 0 {
		return
	}
	requestCounts.With(prometheus.Labels{"route": route, "code": strconv.Itoa(code)}).Inc()
}
