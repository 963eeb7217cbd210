// Package routecache caches route solutions in Redis in front of a route calculator.
package routecache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mmcloughlin/geohash"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/provider"
)

const (
	defaultTTL = 10 * time.Minute
	// geohashPrecision of 9 characters is a cell of roughly 5 meters.
	geohashPrecision = 9
)

// Cache is a provider.Calculator that serves repeated requests from a Store.
// Store failures are logged and the request falls through to the next calculator.
type Cache struct {
	next   provider.Calculator
	store  Store
	ttl    time.Duration
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps next with a cache in store.
func New(next provider.Calculator, store Store, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{next: next, store: store, ttl: ttl, logger: logger}
}

// Stats returns cache hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// CalculateRoute returns a cached solution for req or computes and stores one.
// Only successful, non-empty solutions are cached.
func (c *Cache) CalculateRoute(ctx context.Context, req navigation.RouteRequest) (navigation.RouteSolution, error) {
	key := Key(req)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var routes []navigation.Route
		if uerr := json.Unmarshal(raw, &routes); uerr == nil && len(routes) > 0 {
			c.hits.Add(1)
			c.logger.Debug("route cache hit", zap.String("key", key))
			return navigation.RouteSolution{Request: req, Routes: routes}, nil
		}
		c.logger.Warn("discarding unreadable cached route", zap.String("key", key))
	case errors.Is(err, ErrMiss):
	default:
		c.logger.Warn("route cache unavailable", zap.String("key", key), zap.Error(err))
	}
	c.misses.Add(1)

	solution, err := c.next.CalculateRoute(ctx, req)
	if err != nil || len(solution.Routes) == 0 {
		return solution, err
	}

	data, err := json.Marshal(solution.Routes)
	if err != nil {
		c.logger.Warn("failed to encode route for cache", zap.Error(err))
		return solution, nil
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("failed to cache route", zap.String("key", key), zap.Error(err))
	}
	return solution, nil
}

// Key returns the cache key for req:
// route:{profile}:{locale}:{units}:{geohash,...}:{leg boundaries}[:{bearing}].
func Key(req navigation.RouteRequest) string {
	coords := req.Coordinates()
	hashes := make([]string, len(coords))
	for i, p := range coords {
		hashes[i] = geohash.EncodeWithPrecision(p.Latitude, p.Longitude, geohashPrecision)
	}
	bounds := req.LegBoundaries()
	legs := make([]string, len(bounds))
	for i, b := range bounds {
		legs[i] = strconv.Itoa(b)
	}

	parts := []string{
		"route",
		req.Profile(),
		req.Locale(),
		string(req.Units()),
		strings.Join(hashes, ","),
		strings.Join(legs, ","),
	}
	if bearing, _, ok := req.OriginBearing(); ok {
		parts = append(parts, strconv.Itoa(int(bearing)))
	}
	return strings.Join(parts, ":")
}
