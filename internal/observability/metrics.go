// Package observability exposes the scraper's prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	PagesFetched     prometheus.Counter
	FetchFailures    prometheus.Counter
	ProductsSaved    *prometheus.CounterVec
	ProductsSkipped  prometheus.Counter
	ProductsFailed   prometheus.Counter
	RelationsCreated prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_scraper_pages_fetched_total",
			Help: "Pages fetched successfully.",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_scraper_fetch_failures_total",
			Help: "Fetches that failed after all retries.",
		}),
		ProductsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_scraper_products_saved_total",
			Help: "Products upserted, by brand.",
		}, []string{"brand"}),
		ProductsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_scraper_products_skipped_total",
			Help: "Extractions rejected by the validation gate.",
		}),
		ProductsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_scraper_products_failed_total",
			Help: "Product pages that failed to fetch, extract or persist.",
		}),
		RelationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_scraper_relations_created_total",
			Help: "Related-product edges created.",
		}),
	}
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
