package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coursepay_orders_total",
		Help: "Order creation attempts by result.",
	}, []string{"result"})

	reconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coursepay_reconciliations_total",
		Help: "Gateway callback reconciliations by outcome.",
	}, []string{"outcome"})

	enrollmentsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coursepay_enrollments_granted_total",
		Help: "Enrollments created, by the flow that created them.",
	}, []string{"source"})

	stalePending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coursepay_stale_pending_settlements",
		Help: "PENDING settlements older than the configured age at the last sweep.",
	})
)

const (
	outcomeConfirmed         = "confirmed"
	outcomeRejected          = "rejected"
	outcomeReplayedConfirmed = "replayed_confirmed"
	outcomeReplayedRejected  = "replayed_rejected"
	outcomeInternalError     = "internal_error"
	outcomeNotFound          = "not_found"
)
