// Package metrics defines evidex Prometheus collectors. Nothing is registered
// until Register is called.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "evidex"

var (
	registerOnce sync.Once
	registerErr  error
)

// Collectors returns every evidex collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestDuration,
		httpRequestsTotal,
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
		EmbeddingBudgetTokensRemaining,
		RetrievalSubqueriesTotal,
		RetrievalDuration,
		RetrievalResults,
		EvidenceCoverage,
		IngestDocumentsTotal,
		IngestChunksTotal,
	}
}

// Register registers all collectors once. Later calls return the first result.
func Register(reg prometheus.Registerer) error {
	registerOnce.Do(func() {
		for _, c := range Collectors() {
			if err := reg.Register(c); err != nil {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}
