package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	scrapeTimeout     = 10 * time.Second
	maxScrapeInFlight = 4
)

// Handler serves the collector's registry in the Prometheus or OpenMetrics
// text format, mounted at MetricsConfig.Path. Scrapes of the handler itself
// are counted in promhttp_metric_handler_requests_total, and gather errors
// in promhttp_metric_handler_errors_total.
func (c *Collector) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		Registry:            c.registry,
		ErrorHandling:       promhttp.ContinueOnError,
		EnableOpenMetrics:   true,
		MaxRequestsInFlight: maxScrapeInFlight,
		Timeout:             scrapeTimeout,
	}))
}
