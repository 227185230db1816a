package run

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Live sweep metrics. Long matrix sweeps run for hours; a scrape endpoint
// lets a dashboard watch job progress and per-configuration statistics
// without tailing logs.
var (
	promJobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simsweep_jobs_running",
			Help: "Build and simulator jobs currently in flight",
		},
	)
	promJobsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simsweep_jobs_completed_total",
			Help: "Simulator runs that completed successfully",
		},
	)
	promJobsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simsweep_jobs_failed_total",
			Help: "Configurations that ended in failure",
		},
	)
	promStatsGaugeVec = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "simsweep_run_stat",
			Help: "Per-configuration simulator statistics",
		},
		[]string{"configuration", "stat"},
	)
)

func startPrometheusServer(listenAddr string) {
	prometheus.MustRegister(promJobsRunning, promJobsCompleted, promJobsFailed, promStatsGaugeVec)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("Starting Prometheus metrics server", slog.String("address", listenAddr))
	go func() {
		server := &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
		}
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Prometheus HTTP server ListenAndServe error", slog.String("error", err.Error()))
		}
	}()
}

func promJobRunning(delta float64) {
	promJobsRunning.Add(delta)
}

func promJobCompleted() {
	promJobsCompleted.Inc()
}

func promJobFailed() {
	promJobsFailed.Inc()
}

func promRunStats(configuration string, stats map[string]float64) {
	for name, value := range stats {
		if !math.IsNaN(value) {
			promStatsGaugeVec.WithLabelValues(configuration, name).Set(value)
		}
	}
}
