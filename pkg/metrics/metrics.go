package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ftxgw_rest_request_seconds",
		Help:    "REST request latency by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	RestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ftxgw_rest_errors_total",
		Help: "Failed REST requests by endpoint and error kind.",
	}, []string{"endpoint", "kind"})

	OrdersSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ftxgw_orders_sent_total",
		Help: "Orders submitted by order type.",
	}, []string{"type"})

	OrdersRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ftxgw_orders_rejected_total",
		Help: "Orders moved to REJECTED by the gateway.",
	})

	WSFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ftxgw_ws_frames_total",
		Help: "Inbound websocket update frames by channel.",
	}, []string{"channel"})

	WSReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ftxgw_ws_reconnects_total",
		Help: "Websocket disconnects followed by a reconnect attempt.",
	})

	DroppedFills = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ftxgw_dropped_fills_total",
		Help: "Fills whose exchange order id could not be resolved.",
	})

	BusPublishErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ftxgw_bus_publish_errors_total",
		Help: "Events a remote bus failed to accept.",
	}, []string{"bus"})
)

var once sync.Once

func InitMetrics() {
	once.Do(func() {
		prometheus.MustRegister(
			RestLatency,
			RestErrors,
			OrdersSent,
			OrdersRejected,
			WSFrames,
			WSReconnects,
			DroppedFills,
			BusPublishErrors,
		)
	})
}
