package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BillsComputedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ebilling_bills_computed_total",
			Help: "Total number of bill computations performed",
		},
	)

	BillOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebilling_bill_operations_total",
			Help: "Total number of bill store operations per kind and outcome",
		},
		[]string{"op", "outcome"},
	)

	TariffMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ebilling_tariff_misses_total",
			Help: "Bill computations where no tariff slab matched and rate 0 was used",
		},
	)

	DocumentsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebilling_documents_rendered_total",
			Help: "Bill documents rendered, per kind (single or bulk)",
		},
		[]string{"kind"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebilling_request_errors_total",
			Help: "Total number of error responses per path and code",
		},
		[]string{"path", "code"},
	)
)
