// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coordinate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generationOutcomes counts completed generation attempts.
	// Labels: status (success, exhausted)
	generationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartograph",
		Subsystem: "explorer",
		Name:      "generations_total",
		Help:      "Completed diagram generation attempts by outcome",
	}, []string{"status"})

	// cacheHits counts generation requests answered from the cache
	// without a network call.
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cartograph",
		Subsystem: "explorer",
		Name:      "cache_hits_total",
		Help:      "Generation requests satisfied from the diagram cache",
	})

	// manualRetries counts user-invoked retries of failed sections.
	manualRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cartograph",
		Subsystem: "explorer",
		Name:      "manual_retries_total",
		Help:      "User-invoked retries of failed sections",
	})

	// fixAttempts counts corruption fix attempts.
	// Labels: status (success, failure)
	fixAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartograph",
		Subsystem: "explorer",
		Name:      "fix_attempts_total",
		Help:      "Corruption fix attempts by outcome",
	}, []string{"status"})

	// generationsInFlight tracks concurrent in-flight generations.
	generationsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cartograph",
		Subsystem: "explorer",
		Name:      "generations_in_flight",
		Help:      "Diagram generations currently in flight",
	})
)

func recordGeneration(success bool) {
	status := "success"
	if !success {
		status = "exhausted"
	}
	generationOutcomes.WithLabelValues(status).Inc()
}

func recordFix(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	fixAttempts.WithLabelValues(status).Inc()
}
