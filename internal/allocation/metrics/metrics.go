package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type AllocationMetrics struct {
	Attempts      prometheus.Counter
	Reserved      prometheus.Counter
	Conflicts     prometheus.Counter
	NoneAvailable prometheus.Counter
}

func New() *AllocationMetrics {
	return &AllocationMetrics{
		Attempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_allocation_attempts_total",
			Help: "Allocation attempts started.",
		}),
		Reserved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_allocation_reserved_total",
			Help: "Allocations that reserved a unit.",
		}),
		Conflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_allocation_reserve_conflicts_total",
			Help: "Reservation attempts lost to a concurrent allocator.",
		}),
		NoneAvailable: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_allocation_none_available_total",
			Help: "Allocation attempts that found no compatible unit.",
		}),
	}
}
