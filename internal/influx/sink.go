// Package influx wraps the InfluxDB 2.x write path: bucket lifecycle at
// startup and one batched blocking write per polling cycle.
package influx

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"github.com/telemetrytools/pihole-influx/internal/points"
)

// Buckets created by the sink keep data for 7 days.
const retentionSeconds = 604800

// Config carries the sink connection parameters.
type Config struct {
	Address      string
	Org          string
	Token        string
	Bucket       string
	VerifyTLS    bool
	CreateBucket bool
}

// bucketAPI, orgAPI and pointWriter are the narrow contracts the sink
// needs from the InfluxDB client; tests substitute fakes.
type bucketAPI interface {
	FindBucketByName(ctx context.Context, bucketName string) (*domain.Bucket, error)
	CreateBucketWithName(ctx context.Context, org *domain.Organization, bucketName string, rules ...domain.RetentionRule) (*domain.Bucket, error)
}

type orgAPI interface {
	FindOrganizationByName(ctx context.Context, orgName string) (*domain.Organization, error)
}

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Sink verifies the target bucket and persists point batches.
type Sink struct {
	cfg     Config
	client  influxdb2.Client
	buckets bucketAPI
	orgs    orgAPI
	writer  pointWriter
}

// NewSink builds a sink from connection parameters. Points are written
// with second precision to match the builder's timestamps.
func NewSink(cfg Config) *Sink {
	opts := influxdb2.DefaultOptions().SetPrecision(time.Second)
	if !cfg.VerifyTLS {
		opts = opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}
	client := influxdb2.NewClientWithOptions(cfg.Address, cfg.Token, opts)
	return &Sink{
		cfg:     cfg,
		client:  client,
		buckets: client.BucketsAPI(),
		orgs:    client.OrganizationsAPI(),
		writer:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// Close releases the underlying HTTP client.
func (s *Sink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// EnsureBucket verifies that the configured bucket exists, creating it
// with the default retention when creation is permitted. Safe to call
// once at startup; a returned error is a startup-fatal condition.
func (s *Sink) EnsureBucket(ctx context.Context) error {
	bucket, err := s.buckets.FindBucketByName(ctx, s.cfg.Bucket)
	if err == nil && bucket != nil {
		return nil
	}
	if !s.cfg.CreateBucket {
		return fmt.Errorf("InfluxDB bucket %q does not exist", s.cfg.Bucket)
	}

	org, err := s.orgs.FindOrganizationByName(ctx, s.cfg.Org)
	if err != nil {
		return fmt.Errorf("looking up InfluxDB org %q: %w", s.cfg.Org, err)
	}

	log.Printf("InfluxDB bucket %q does not yet exist - creating", s.cfg.Bucket)
	ruleType := domain.RetentionRuleTypeExpire
	_, err = s.buckets.CreateBucketWithName(ctx, org, s.cfg.Bucket, domain.RetentionRule{
		Type:         &ruleType,
		EverySeconds: retentionSeconds,
	})
	if err != nil {
		return fmt.Errorf("creating InfluxDB bucket %q: %w", s.cfg.Bucket, err)
	}
	return nil
}

// WriteBatch submits all of one cycle's points as a single write. The
// batch is atomic from the caller's perspective: it either succeeds or
// returns an error for the cycle to log and absorb.
func (s *Sink) WriteBatch(ctx context.Context, pts []points.Point) error {
	if len(pts) == 0 {
		return nil
	}
	batch := make([]*write.Point, 0, len(pts))
	for _, p := range pts {
		batch = append(batch, influxdb2.NewPoint(p.Measurement, p.Tags, p.Fields, time.Unix(p.Timestamp, 0)))
	}
	if err := s.writer.WritePoint(ctx, batch...); err != nil {
		return fmt.Errorf("writing %d points to InfluxDB: %w", len(batch), err)
	}
	return nil
}
