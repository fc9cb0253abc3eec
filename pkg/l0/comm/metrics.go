package comm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cobslink",
		Name:      "frames_received_total",
		Help:      "Number of COBS frames decoded from the link.",
	})
	frameErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cobslink",
		Name:      "frame_errors_total",
		Help:      "Number of malformed frames or packets received.",
	}, []string{"reason"})
	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cobslink",
		Name:      "frames_sent_total",
		Help:      "Number of COBS frames written to the link.",
	})
	bytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cobslink",
		Name:      "bytes_received_total",
		Help:      "Number of raw bytes read from the link.",
	})
)
