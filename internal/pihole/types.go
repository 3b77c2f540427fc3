package pihole

// Response types for the Pi-hole FTL v6 statistics API.
// https://ftl.pi-hole.net/development-v6/docs/

// Summary is an overview of Pi-hole activity (GET /stats/summary).
type Summary struct {
	Queries Queries `json:"queries"`
	Clients Clients `json:"clients"`
	Gravity Gravity `json:"gravity"`
}

// Queries holds per-cycle query counters. The types, status and replies
// breakdowns are keyed by names FTL may extend between releases, so they
// stay as maps rather than fixed structs.
type Queries struct {
	Total          uint64  `json:"total"`
	Blocked        uint64  `json:"blocked"`
	PercentBlocked float64 `json:"percent_blocked"`
	UniqueDomains  uint64  `json:"unique_domains"`
	Forwarded      uint64  `json:"forwarded"`
	Cached         uint64  `json:"cached"`
	// Undocumented but present in FTL responses.
	Frequency float64 `json:"frequency"`

	Types    map[string]uint64 `json:"types"`
	Statuses map[string]uint64 `json:"status"`
	Replies  map[string]uint64 `json:"replies"`
}

// Clients counts the clients FTL currently knows about.
type Clients struct {
	Active uint64 `json:"active"`
	Total  uint64 `json:"total"`
}

// Gravity describes the blocklist database.
type Gravity struct {
	DomainsBeingBlocked uint64 `json:"domains_being_blocked"`
	LastUpdate          uint64 `json:"last_update"`
}

// TopClients is the result of GET /stats/top_clients.
type TopClients struct {
	Clients []ClientEntry `json:"clients"`
}

// ClientEntry is one client in a top-clients list.
type ClientEntry struct {
	IP    string `json:"ip"`
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

// TopDomains is the result of GET /stats/top_domains, for either the
// permitted or the blocked variant.
type TopDomains struct {
	Domains []DomainEntry `json:"domains"`
}

// DomainEntry is one domain in a top-domains list.
type DomainEntry struct {
	Domain string `json:"domain"`
	Count  uint64 `json:"count"`
}

// Upstreams is the result of GET /stats/upstreams.
type Upstreams struct {
	Upstreams []UpstreamEntry `json:"upstreams"`
}

// UpstreamEntry is one upstream DNS destination.
type UpstreamEntry struct {
	IP         string             `json:"ip"`
	Name       string             `json:"name"`
	Port       int                `json:"port"`
	Count      uint64             `json:"count"`
	Statistics UpstreamStatistics `json:"statistics"`
}

// UpstreamStatistics holds response-time metrics for an upstream.
type UpstreamStatistics struct {
	Response float64 `json:"response"`
	Variance float64 `json:"variance"`
}

// History is the result of GET /history: activity-graph data in fixed
// time buckets.
type History struct {
	History []HistoryEntry `json:"history"`
}

// HistoryEntry is one time bucket of query activity. FTL reports the
// bucket timestamp as a number; it is truncated to whole seconds when
// points are built.
type HistoryEntry struct {
	Timestamp float64 `json:"timestamp"`
	Total     uint64  `json:"total"`
	Cached    uint64  `json:"cached"`
	Blocked   uint64  `json:"blocked"`
	Forwarded uint64  `json:"forwarded"`
}

// BlockingStatus is the result of GET /dns/blocking. Timer is nil unless
// blocking was toggled with a timeout.
type BlockingStatus struct {
	Blocking string   `json:"blocking"`
	Timer    *float64 `json:"timer"`
}

type authRequest struct {
	Password string `json:"password"`
}

type authResponse struct {
	Session struct {
		Valid bool   `json:"valid"`
		SID   string `json:"sid"`
	} `json:"session"`
}

// apiError is the structured error payload FTL attaches to 4xx responses.
type apiError struct {
	Error struct {
		Key     string `json:"key"`
		Message string `json:"message"`
		Hint    string `json:"hint"`
	} `json:"error"`
}
