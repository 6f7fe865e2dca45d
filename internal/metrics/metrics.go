// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package metrics exposes the manager's own Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ServicesRunning tracks the number of live service tasks.
	ServicesRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ppdrive",
		Subsystem: "manager",
		Name:      "services_running",
		Help:      "Number of service tasks currently registered.",
	})

	// ControlRequests counts control-plane requests by operation and
	// outcome.
	ControlRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ppdrive",
		Subsystem: "manager",
		Name:      "control_requests_total",
		Help:      "Control requests processed, labeled by op and outcome.",
	}, []string{"op", "outcome"})
)

// ObserveRequest records one dispatched request.
func ObserveRequest(op string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	ControlRequests.WithLabelValues(op, outcome).Inc()
}
