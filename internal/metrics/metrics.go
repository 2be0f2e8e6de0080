package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpvotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_upvotes_total",
		Help: "Optimistic upvotes applied to local state",
	})

	CounterSyncWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_counter_sync_writes_total",
		Help: "Counter writes sent to the store by the sync worker",
	})

	CounterSyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_counter_sync_failures_total",
		Help: "Counter writes that failed; the optimistic value is not rolled back",
	})

	CounterSyncDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_counter_sync_dropped_total",
		Help: "Counter sync jobs dropped because the queue was full",
	})

	StaleRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_stale_refreshes_total",
		Help: "Refresh responses discarded because a newer refresh had started",
	})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "launchpad_store_errors_total",
		Help: "Failed store calls by operation",
	}, []string{"op"})
)
