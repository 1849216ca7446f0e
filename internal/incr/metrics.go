package incr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	memoHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grove_incr_memo_hits_total",
		Help: "Derived reads served from a memo verified at the current revision",
	}, []string{"query"})

	memoRevalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grove_incr_memo_revalidations_total",
		Help: "Memos reused after checking that none of their dependencies changed",
	}, []string{"query"})

	memoRecomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grove_incr_memo_recomputes_total",
		Help: "Derived computations executed",
	}, []string{"query"})

	memoCancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grove_incr_cancellations_total",
		Help: "Derived reads abandoned because a newer revision was committed",
	}, []string{"query"})
)
