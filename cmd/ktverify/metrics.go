package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_verifications",
			Help: "Incremented for each search response verified, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	monitorVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_verifications",
			Help: "Incremented for each monitor response verified, labeled by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(searchVerifications)
	prometheus.MustRegister(monitorVerifications)
}

func recordOutcome(counter *prometheus.CounterVec, err error) {
	if err == nil {
		counter.WithLabelValues("success").Inc()
		return
	}
	counter.WithLabelValues("failure").Inc()
}

// serveMetrics serves a /metrics and /healthz endpoint on addr. Blocks;
// callers run it with `go serveMetrics(addr)`, mirroring how the server
// command runs its own metrics listener.
func serveMetrics(addr string) {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	log.Printf("Starting metrics server at: %v", addr)
	srv := &http.Server{Addr: addr, Handler: r}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("Metrics server stopped: %v", err)
	}
}
