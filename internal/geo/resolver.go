// Package geo resolves client IPs to geolocation records with an
// in-process TTL cache and a primary/fallback provider chain.
package geo

import (
	"context"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/mdmc/smartlinks/internal/metrics"
	"github.com/mdmc/smartlinks/internal/model"
)

// Resolver maps client IPs to GeoRecords. Resolve is total: it never
// returns an error, degrading to the sentinel record on any failure.
type Resolver struct {
	primary          Provider
	secondary        Provider
	primaryTimeout   time.Duration
	secondaryTimeout time.Duration
	cache            *Cache
	logger           *slog.Logger
	metrics          metrics.Recorder
}

// ResolverConfig holds Resolver construction options.
type ResolverConfig struct {
	Primary          Provider
	Secondary        Provider
	PrimaryTimeout   time.Duration // defaults to DefaultPrimaryTimeout
	SecondaryTimeout time.Duration // defaults to DefaultSecondaryTimeout
	Cache            *Cache        // defaults to NewCache(0, 0, nil)
	Logger           *slog.Logger
	Metrics          metrics.Recorder
}

// NewResolver creates a Resolver from cfg.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = DefaultPrimaryTimeout
	}
	if cfg.SecondaryTimeout <= 0 {
		cfg.SecondaryTimeout = DefaultSecondaryTimeout
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCache(0, 0, nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return &Resolver{
		primary:          cfg.Primary,
		secondary:        cfg.Secondary,
		primaryTimeout:   cfg.PrimaryTimeout,
		secondaryTimeout: cfg.SecondaryTimeout,
		cache:            cfg.Cache,
		logger:           cfg.Logger.With("component", "geo.resolver"),
		metrics:          cfg.Metrics,
	}
}

// Resolve returns geolocation data for ip. Invalid and non-routable
// addresses skip network resolution entirely; provider failures fall
// through the chain and end at the sentinel record, which is cached so
// a persistently-unresolvable IP does not hammer the providers within
// the TTL window.
func (r *Resolver) Resolve(ctx context.Context, ip string) model.GeoRecord {
	normalized, ok := normalizeIP(ip)
	if !ok {
		return model.UnknownGeoRecord(ip)
	}

	if record, hit := r.cache.Get(normalized); hit {
		r.metrics.IncGeoCacheHit()
		record.IP = normalized
		return record
	}
	r.metrics.IncGeoCacheMiss()

	record, resolved := r.lookup(ctx, r.primary, normalized, r.primaryTimeout)
	if !resolved {
		record, resolved = r.lookup(ctx, r.secondary, normalized, r.secondaryTimeout)
	}
	if !resolved {
		record = model.UnknownGeoRecord(normalized)
		r.metrics.IncGeoLookup("sentinel", "fallback")
	}

	r.cache.Set(normalized, record)
	return record
}

// lookup calls one provider with its timeout. Failures are absorbed:
// logged at warn level, counted, never propagated.
func (r *Resolver) lookup(ctx context.Context, p Provider, ip string, timeout time.Duration) (model.GeoRecord, bool) {
	if p == nil {
		return model.GeoRecord{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	record, err := p.Lookup(callCtx, ip)
	duration := time.Since(start)

	if err != nil {
		r.logger.Warn("geo provider lookup failed",
			"provider", p.Name(),
			"ip", ip,
			"duration_ms", float64(duration.Microseconds())/1000,
			"error", err,
		)
		r.metrics.IncGeoLookup(p.Name(), "error")
		return model.GeoRecord{}, false
	}

	r.metrics.IncGeoLookup(p.Name(), "success")
	r.metrics.ObserveGeoLookupDuration(p.Name(), duration)
	return record, true
}

// normalizeIP parses ip, unmaps IPv4-in-IPv6 addresses, and reports
// whether the address is publicly routable. Private, loopback, and
// link-local ranges are rejected.
func normalizeIP(ip string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", false
	}
	addr = addr.Unmap()

	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() {
		return "", false
	}
	return addr.String(), true
}
