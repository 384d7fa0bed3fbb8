package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/realshaunoneill/servicetracker/internal/domain"
	"github.com/realshaunoneill/servicetracker/internal/metrics"
)

const (
	serviceCachePrefix = "service_cache:"
	serviceCacheTTL    = 1 * time.Hour
)

// ServiceCache provides read-through service metadata lookups:
// Redis → PostgreSQL. Only metadata is cached (Sessions stays nil); session
// state changes with every accepted report and always comes from PostgreSQL.
// Misses for unknown names are not cached, so a service registered moments
// later is visible immediately.
type ServiceCache struct {
	rdb      goredis.Cmdable
	services domain.ServiceFinder
}

// NewServiceCache creates a read-through cache in front of the repository.
func NewServiceCache(rdb goredis.Cmdable, services domain.ServiceFinder) *ServiceCache {
	return &ServiceCache{rdb: rdb, services: services}
}

// GetByName looks up a service by name with read-through caching. Any Redis
// failure falls through to PostgreSQL.
func (c *ServiceCache) GetByName(ctx context.Context, name string) (*domain.Service, error) {
	key := serviceCachePrefix + name

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var svc cachedService
		if err := json.Unmarshal(data, &svc); err != nil {
			slog.Warn("Failed to unmarshal cached service, falling through to PostgreSQL",
				"service", name, "error", err)
		} else {
			metrics.ServiceCacheHits.Inc()
			return svc.toDomain(), nil
		}
	} else if !errors.Is(err, goredis.Nil) {
		slog.Warn("Redis service cache GET failed, falling through to PostgreSQL",
			"service", name, "error", err)
	}

	svc, err := c.services.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service lookup failed: %w", err)
	}

	metrics.ServiceCacheMisses.Inc()

	// Populate the cache (best-effort).
	if encoded, err := json.Marshal(fromDomain(svc)); err == nil {
		if err := c.rdb.Set(ctx, key, encoded, serviceCacheTTL).Err(); err != nil {
			slog.Warn("Failed to populate service cache", "service", name, "error", err)
		}
	}

	return svc, nil
}

// cachedService is the wire form stored in Redis. AppToken must round-trip
// so the reconciler's token gate works from a cache hit, which is why the
// domain struct (AppToken json:"-") is not marshalled directly.
type cachedService struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Picture            string    `json:"picture"`
	RequireToken       bool      `json:"require_token"`
	AppToken           string    `json:"app_token"`
	SessionTimeoutDays int       `json:"session_timeout_days"`
	CreatedAt          time.Time `json:"created_at"`
}

func fromDomain(svc *domain.Service) cachedService {
	return cachedService{
		ID:                 svc.ID.String(),
		Name:               svc.Name,
		Picture:            svc.Picture,
		RequireToken:       svc.RequireToken,
		AppToken:           svc.AppToken,
		SessionTimeoutDays: svc.SessionTimeoutDays,
		CreatedAt:          svc.CreatedAt,
	}
}

func (c cachedService) toDomain() *domain.Service {
	svc := &domain.Service{
		Name:               c.Name,
		Picture:            c.Picture,
		RequireToken:       c.RequireToken,
		AppToken:           c.AppToken,
		SessionTimeoutDays: c.SessionTimeoutDays,
		CreatedAt:          c.CreatedAt,
	}
	// An unparseable ID would mean a corrupted entry; uuid.Parse error is
	// deliberately ignored and leaves the zero UUID, which no session row
	// references, so the worst case is a session lookup miss.
	if id, err := uuid.Parse(c.ID); err == nil {
		svc.ID = id
	}
	return svc
}
