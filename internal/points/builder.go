// Package points turns one polling cycle's statistics into time-series
// data points. The transformation is pure: no I/O, no mutation of the
// snapshot, same input always yields the same points.
package points

import (
	"strconv"
	"strings"
	"time"

	"github.com/telemetrytools/pihole-influx/internal/pihole"
)

// Snapshot is the raw result of one polling cycle for one instance. A
// nil category means its fetch failed or was skipped; the builder drops
// it and emits points for the categories that are present.
type Snapshot struct {
	Summary             *pihole.Summary
	TopClients          *pihole.TopClients
	TopPermittedDomains *pihole.TopDomains
	TopBlockedDomains   *pihole.TopDomains
	Upstreams           *pihole.Upstreams
	History             *pihole.History
	Blocking            *pihole.BlockingStatus
}

// Empty reports whether every category is absent. An empty snapshot
// means the cycle produced nothing worth writing.
func (s Snapshot) Empty() bool {
	return s.Summary == nil &&
		s.TopClients == nil &&
		s.TopPermittedDomains == nil &&
		s.TopBlockedDomains == nil &&
		s.Upstreams == nil &&
		s.History == nil &&
		s.Blocking == nil
}

// Build flattens a snapshot into points tagged with the instance alias
// and hostname. Most points carry now (truncated to seconds); history
// points carry their own bucket timestamp.
//
// Top-N lists (clients, domains, upstreams) are encoded as one
// comma-separated string field of pipe-joined tuples rather than one
// field per entry. The set of entries changes cycle to cycle, and
// per-entry fields would leave a stale entry looking current in a
// latest-value query; a single string field is fully replaced every
// cycle.
func Build(snap Snapshot, alias, hostname string, now time.Time) []Point {
	tags := Tags(alias, hostname)
	ts := now.Unix()
	var pts []Point

	add := func(measurement string, fields map[string]any, at int64) {
		if len(fields) == 0 {
			return
		}
		pts = append(pts, Point{
			Measurement: measurement,
			Tags:        tags,
			Fields:      fields,
			Timestamp:   at,
		})
	}

	if s := snap.Summary; s != nil {
		add("gravity", map[string]any{
			"domains_being_blocked": s.Gravity.DomainsBeingBlocked,
			"last_update":           s.Gravity.LastUpdate,
		}, ts)
		add("clients", map[string]any{
			"active": s.Clients.Active,
			"total":  s.Clients.Total,
		}, ts)
		add("query_replies", countFields(s.Queries.Replies), ts)
		add("query_statuses", countFields(s.Queries.Statuses), ts)
		add("query_types", countFields(s.Queries.Types), ts)
		add("queries", map[string]any{
			"total":           s.Queries.Total,
			"blocked":         s.Queries.Blocked,
			"percent_blocked": s.Queries.PercentBlocked,
			"unique_domains":  s.Queries.UniqueDomains,
			"forwarded":       s.Queries.Forwarded,
			"cached":          s.Queries.Cached,
			"frequency":       s.Queries.Frequency,
		}, ts)
	}

	if t := snap.TopClients; t != nil {
		add("top_clients", map[string]any{
			"top_clients": EncodeClients(t.Clients),
		}, ts)
	}
	if t := snap.TopPermittedDomains; t != nil {
		add("top_permitted_domains", map[string]any{
			"top_permitted_domains": EncodeDomains(t.Domains),
		}, ts)
	}
	if t := snap.TopBlockedDomains; t != nil {
		add("top_blocked_domains", map[string]any{
			"top_blocked_domains": EncodeDomains(t.Domains),
		}, ts)
	}
	if u := snap.Upstreams; u != nil {
		add("upstreams", map[string]any{
			"upstreams": EncodeUpstreams(u.Upstreams),
		}, ts)
	}

	if h := snap.History; h != nil {
		for _, bucket := range h.History {
			add("history", map[string]any{
				"total":     bucket.Total,
				"cached":    bucket.Cached,
				"blocked":   bucket.Blocked,
				"forwarded": bucket.Forwarded,
			}, int64(bucket.Timestamp))
		}
	}

	if b := snap.Blocking; b != nil {
		// The timer field keeps a stable presence and type across
		// cycles: -1 stands in for "no timer".
		timer := int64(-1)
		if b.Timer != nil {
			timer = int64(*b.Timer)
		}
		add("blocking", map[string]any{
			"blocking": b.Blocking,
			"timer":    timer,
		}, ts)
	}

	return pts
}

func countFields(counts map[string]uint64) map[string]any {
	fields := make(map[string]any, len(counts))
	for name, count := range counts {
		fields[name] = count
	}
	return fields
}

// EncodeClients renders a top-clients list as "ip|name|count" tuples
// joined by commas, in list order.
func EncodeClients(clients []pihole.ClientEntry) string {
	var b strings.Builder
	for i, c := range clients {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.IP)
		b.WriteByte('|')
		b.WriteString(c.Name)
		b.WriteByte('|')
		b.WriteString(strconv.FormatUint(c.Count, 10))
	}
	return b.String()
}

// EncodeDomains renders a top-domains list as "domain|count" tuples
// joined by commas, in list order.
func EncodeDomains(domains []pihole.DomainEntry) string {
	var b strings.Builder
	for i, d := range domains {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(d.Domain)
		b.WriteByte('|')
		b.WriteString(strconv.FormatUint(d.Count, 10))
	}
	return b.String()
}

// EncodeUpstreams renders an upstream list as
// "ip|name|port|count|response|variance" tuples joined by commas.
func EncodeUpstreams(upstreams []pihole.UpstreamEntry) string {
	var b strings.Builder
	for i, u := range upstreams {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(u.IP)
		b.WriteByte('|')
		b.WriteString(u.Name)
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(u.Port))
		b.WriteByte('|')
		b.WriteString(strconv.FormatUint(u.Count, 10))
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(u.Statistics.Response, 'g', -1, 64))
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(u.Statistics.Variance, 'g', -1, 64))
	}
	return b.String()
}
