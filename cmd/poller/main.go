package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"bikeshare-etl/internal/config"
	"bikeshare-etl/internal/gbfs"
	"bikeshare-etl/internal/metrics"
	"bikeshare-etl/internal/poller"
	"bikeshare-etl/internal/publisher"
	"bikeshare-etl/internal/storage"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.GBFSStatusURL == "" || cfg.GBFSInfoURL == "" {
		log.Fatalf("GBFS_STATUS_URL and GBFS_INFO_URL must be set")
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.PollInterval, cfg.InfoRefreshInterval)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Initialize NATS publisher
	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
	if err != nil {
		log.Fatalf("nats error: %v", err)
	}
	defer pub.Close()

	store := storage.New(cfg.AWSRegion)
	client := gbfs.NewClient(cfg.GBFSStatusURL, cfg.GBFSInfoURL)

	p := poller.New(client, store, pub, cfg.RawBucket, cfg.PollInterval, cfg.InfoRefreshInterval, mcol)
	p.Start(ctx)
	log.Printf("poller started: status every %s, information every %s", cfg.PollInterval, cfg.InfoRefreshInterval)

	// Block until context cancelled
	<-ctx.Done()
	p.Stop()
	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
	log.Println("shutdown complete")
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()  { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc() { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
