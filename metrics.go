// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for ACL evaluation and cache lifecycle.
var (
	// checkDuration tracks the latency of permission checks.
	checkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "acl_check_duration_seconds",
		Help:    "Histogram of ACL permission check latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// permissionChecks counts permission checks by outcome.
	permissionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acl_permission_checks_total",
		Help: "Total number of ACL permission checks",
	}, []string{"outcome"})

	// cacheReloads counts full cache rebuilds by status.
	cacheReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acl_cache_reloads_total",
		Help: "Total number of ACL cache reloads",
	}, []string{"status"})
)

// recordCheck records one completed permission check.
func recordCheck(duration time.Duration, allowed bool) {
	checkDuration.Observe(duration.Seconds())
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	permissionChecks.WithLabelValues(outcome).Inc()
}

func recordReload(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	cacheReloads.WithLabelValues(status).Inc()
}
