package harvest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IdentifiersDiscovered tracks identifiers yielded by the catalog walk.
	IdentifiersDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_identifiers_discovered_total",
		Help: "The total number of identifiers discovered in the catalog.",
	})
	// IdentifiersSkipped tracks identifiers resolved without a record, labeled by reason.
	IdentifiersSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_identifiers_skipped_total",
		Help: "The total number of identifiers skipped, labeled by reason.",
	}, []string{"reason"})
	// RecordsDelivered tracks records committed to the sink.
	RecordsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_records_delivered_total",
		Help: "The total number of records delivered to the dataset sink.",
	})
	// FetchRetries tracks content fetch attempts beyond the first.
	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_fetch_retries_total",
		Help: "The total number of content fetch retries.",
	})
	// BatchesDelivered tracks successfully delivered batches.
	BatchesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_batches_delivered_total",
		Help: "The total number of batches accepted by the dataset sink.",
	})
	// DeliveryFailures tracks batch deliveries rejected by the sink.
	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_delivery_failures_total",
		Help: "The total number of failed batch deliveries.",
	})
)
