// Package metrics holds the engine-level Prometheus counters wired in
// alongside router/middleware.go's request counter: connection,
// stream, and frame counts, the three granularities the dispatch loop
// naturally passes through.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "h2_connections_total",
		Help: "Total HTTP/2 connections accepted.",
	})

	StreamsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "h2_streams_total",
		Help: "Total client-initiated streams created.",
	})

	FramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "h2_frames_total",
		Help: "Total frames dispatched, by frame type.",
	}, []string{"type"})

	GoAwaySentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "h2_goaway_sent_total",
		Help: "Total GOAWAY frames sent, by error code.",
	}, []string{"code"})
)

func init() {
	prometheus.MustRegister(ConnectionsTotal, StreamsTotal, FramesTotal, GoAwaySentTotal)
}
