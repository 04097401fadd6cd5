// Package poller captures GBFS snapshots on a fixed interval and lands them
// as raw JSON objects, announcing each capture on NATS.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"bikeshare-etl/internal/gbfs"
	"bikeshare-etl/internal/metrics"
	"bikeshare-etl/internal/publisher"
	"bikeshare-etl/internal/storage"
)

type Poller struct {
	client       *gbfs.Client
	store        *storage.Client
	pub          *publisher.NATSPublisher
	bucket       string
	pollInterval time.Duration
	infoInterval time.Duration
	metrics      *metrics.Collector

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(client *gbfs.Client, store *storage.Client, pub *publisher.NATSPublisher, bucket string, pollInterval, infoInterval time.Duration, mcol *metrics.Collector) *Poller {
	return &Poller{
		client:       client,
		store:        store,
		pub:          pub,
		bucket:       bucket,
		pollInterval: pollInterval,
		infoInterval: infoInterval,
		metrics:      mcol,
	}
}

// Start launches the status and information capture loops. Each loop runs
// once immediately, then on its ticker.
func (p *Poller) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(ctx, p.pollInterval, "status", p.captureStatus)
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(ctx, p.infoInterval, "information", p.captureInformation)
	}()
}

func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, feed string, capture func(context.Context) error) {
	if err := capture(ctx); err != nil && ctx.Err() == nil {
		log.Printf("capture %s error: %v", feed, err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := capture(ctx); err != nil && ctx.Err() == nil {
				log.Printf("capture %s error: %v", feed, err)
			}
		}
	}
}

func (p *Poller) captureStatus(ctx context.Context) error {
	fetchStart := time.Now()
	snap, err := p.client.FetchStatus(ctx)
	if p.metrics != nil {
		p.metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.SnapshotFetchErrs.WithLabelValues("status").Inc()
		}
		return err
	}
	if p.metrics != nil {
		p.metrics.SnapshotsFetched.WithLabelValues("status").Inc()
		p.metrics.StationsCaptured.Set(float64(len(snap.Stations)))
	}

	key := statusKey(snap.CapturedAt)
	if err := p.uploadJSON(ctx, key, snap); err != nil {
		return err
	}
	log.Printf("captured status snapshot: %d stations -> s3://%s/%s", len(snap.Stations), p.bucket, key)

	if p.pub != nil {
		msg := publisher.SnapshotMessage{
			Feed:         "status",
			CapturedAt:   snap.CapturedAt,
			LastUpdated:  snap.LastUpdated,
			StationCount: len(snap.Stations),
			Bucket:       p.bucket,
			ObjectKey:    key,
		}
		if err := p.pub.PublishSnapshot(msg); err != nil {
			log.Printf("publish snapshot error: %v", err)
		}
	}
	return nil
}

func (p *Poller) captureInformation(ctx context.Context) error {
	fetchStart := time.Now()
	infos, err := p.client.FetchInformation(ctx)
	if p.metrics != nil {
		p.metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.SnapshotFetchErrs.WithLabelValues("information").Inc()
		}
		return err
	}
	if p.metrics != nil {
		p.metrics.SnapshotsFetched.WithLabelValues("information").Inc()
	}

	capturedAt := time.Now().UTC()
	key := informationKey(capturedAt)
	if err := p.uploadJSON(ctx, key, infos); err != nil {
		return err
	}
	log.Printf("captured station information: %d stations -> s3://%s/%s", len(infos), p.bucket, key)

	if p.pub != nil {
		msg := publisher.SnapshotMessage{
			Feed:         "information",
			CapturedAt:   capturedAt,
			StationCount: len(infos),
			Bucket:       p.bucket,
			ObjectKey:    key,
		}
		if err := p.pub.PublishSnapshot(msg); err != nil {
			log.Printf("publish snapshot error: %v", err)
		}
	}
	return nil
}

func (p *Poller) uploadJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	uploadStart := time.Now()
	err = p.store.Upload(ctx, p.bucket, key, bytes.NewReader(b), nil)
	if p.metrics != nil {
		p.metrics.UploadDuration.Observe(time.Since(uploadStart).Seconds())
		if err != nil {
			p.metrics.UploadErrs.Inc()
		} else {
			p.metrics.UploadsTotal.Inc()
		}
	}
	return err
}

func statusKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("gbfs/status/%s/%d.json", t.Format("2006/01/02"), t.Unix())
}

func informationKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("gbfs/information/%s/%d.json", t.Format("2006/01/02"), t.Unix())
}
