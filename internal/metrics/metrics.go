package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	SnapshotsFetched  *prometheus.CounterVec // feed label: status|information
	SnapshotFetchErrs *prometheus.CounterVec
	StationsCaptured  prometheus.Gauge

	UploadsTotal prometheus.Counter
	UploadErrs   prometheus.Counter

	RowsKept     prometheus.Counter
	RowsRejected *prometheus.CounterVec // reason label

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	FetchDuration  prometheus.Histogram
	UploadDuration prometheus.Histogram

	PollInterval    prometheus.Gauge // seconds
	RefreshInterval prometheus.Gauge // seconds
}

func NewCollector(pollInterval, infoRefreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		SnapshotsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_snapshots_fetched_total",
			Help: "Total GBFS feed fetches that succeeded.",
		}, []string{"feed"}),
		SnapshotFetchErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_snapshot_fetch_errors_total",
			Help: "Total GBFS feed fetches that failed.",
		}, []string{"feed"}),
		StationsCaptured: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etl_stations_captured",
			Help: "Stations present in the most recent status snapshot.",
		}),
		UploadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etl_uploads_total",
			Help: "Total objects uploaded to object storage.",
		}),
		UploadErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etl_upload_errors_total",
			Help: "Total object storage upload failures.",
		}),
		RowsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etl_rows_kept_total",
			Help: "Trip rows that passed the data-quality gate.",
		}),
		RowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_rows_rejected_total",
			Help: "Trip rows rejected by the data-quality gate.",
		}, []string{"reason"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etl_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etl_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etl_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "etl_fetch_duration_seconds",
			Help:    "Duration of GBFS feed fetches.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		UploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "etl_upload_duration_seconds",
			Help:    "Duration of object storage uploads.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etl_poll_interval_seconds",
			Help: "Status snapshot poll interval in seconds.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etl_info_refresh_interval_seconds",
			Help: "Station information refresh interval in seconds.",
		}),
	}

	// Register
	reg.MustRegister(
		c.SnapshotsFetched, c.SnapshotFetchErrs, c.StationsCaptured,
		c.UploadsTotal, c.UploadErrs,
		c.RowsKept, c.RowsRejected,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.FetchDuration, c.UploadDuration,
		c.PollInterval, c.RefreshInterval,
	)

	c.PollInterval.Set(pollInterval.Seconds())
	c.RefreshInterval.Set(infoRefreshInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
