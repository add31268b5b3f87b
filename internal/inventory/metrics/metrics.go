package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	UnitsCollected       prometheus.Counter
	UnitsProcessed       prometheus.Counter
	UnitsDiscarded       prometheus.Counter
	UnitsExpired         prometheus.Counter
	ReservationsReleased prometheus.Counter
	UnitsIssued          prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		UnitsCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_units_collected_total",
			Help: "Total number of raw donations recorded into the ledger",
		}),
		UnitsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_units_processed_total",
			Help: "Total number of bank units created by processing",
		}),
		UnitsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_units_discarded_total",
			Help: "Total number of raw units discarded",
		}),
		UnitsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_units_expired_total",
			Help: "Total number of units expired by the sweeper",
		}),
		ReservationsReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_reservations_released_total",
			Help: "Total number of reservations released back to available",
		}),
		UnitsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_units_issued_total",
			Help: "Total number of units issued to fulfilled requests",
		}),
	}
}
