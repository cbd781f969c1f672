package router

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/coreh2/h2"
)

// Logging logs one structured line per request via the connection's
// zap logger.
func Logging(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *h2.Request) *h2.Response {
			resp := next(req)
			logger.Info("request",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.Int("status", statusOf(resp)),
				zap.Int("body_bytes", len(req.Body)),
			)
			return resp
		}
	}
}

// requestsTotal counts served requests by method and status.
var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "h2_router_requests_total",
		Help: "Total requests served by the router, by method and status.",
	},
	[]string{"method", "status"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

// Metrics increments requestsTotal for every request that passes
// through it.
func Metrics() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *h2.Request) *h2.Response {
			resp := next(req)
			requestsTotal.WithLabelValues(req.Method, statusLabel(resp)).Inc()
			return resp
		}
	}
}

// Recover converts a panicking handler into a 500 response instead of
// tearing down the whole connection.
func Recover(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *h2.Request) (resp *h2.Response) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic", zap.Any("recovered", r))
					resp = h2.NewResponse(500)
				}
			}()
			return next(req)
		}
	}
}

func statusOf(resp *h2.Response) int {
	if resp == nil {
		return 0
	}
	return resp.Status
}

func statusLabel(resp *h2.Response) string {
	if resp == nil {
		return "0"
	}
	return strconv.Itoa(resp.Status)
}
