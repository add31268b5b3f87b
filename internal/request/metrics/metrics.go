package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type RequestMetrics struct {
	Created   *prometheus.CounterVec
	Agreed    prometheus.Counter
	Issued    prometheus.Counter
	Cancelled prometheus.Counter
	Rejected  prometheus.Counter
}

func New() *RequestMetrics {
	return &RequestMetrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hemobank_requests_created_total",
			Help: "Requests created, by kind.",
		}, []string{"kind"}),
		Agreed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_requests_agreed_total",
			Help: "Requests that reached the agreed state.",
		}),
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_requests_issued_total",
			Help: "Requests fulfilled with an issuance.",
		}),
		Cancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_requests_cancelled_total",
			Help: "Requests cancelled by the requester or staff.",
		}),
		Rejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_requests_rejected_total",
			Help: "Requests rejected by staff.",
		}),
	}
}
