// Package registry resolves game-instance names to internal ids.
package registry

import (
	"context"
	"log/slog"

	"github.com/campusguessr/scoreserver/internal/domain"
)

// Store is the authoritative instance lookup
type Store interface {
	ResolveInstance(ctx context.Context, name string) (int64, error)
}

// Cache is an optional read-through cache in front of the store
type Cache interface {
	GetInstanceID(ctx context.Context, name string) (int64, bool, error)
	SetInstanceID(ctx context.Context, name string, id int64) error
}

// Registry resolves instance names, consulting the cache first. Instance
// configuration changes rarely, so short-TTL caching is safe; cache errors
// are logged and the lookup falls through to the store.
type Registry struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

// New creates a Registry. cache may be nil to disable caching.
func New(store Store, cache Cache, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Resolve returns the id of an active instance, or
// domain.ErrInstanceNotFound for unknown or inactive names.
func (r *Registry) Resolve(ctx context.Context, name string) (int64, error) {
	if r.cache != nil {
		id, ok, err := r.cache.GetInstanceID(ctx, name)
		if err != nil {
			r.logger.Warn("instance cache lookup failed", "instance", name, "error", err)
		} else if ok {
			return id, nil
		}
	}

	id, err := r.store.ResolveInstance(ctx, name)
	if err != nil {
		return 0, err
	}

	if r.cache != nil {
		if err := r.cache.SetInstanceID(ctx, name, id); err != nil {
			r.logger.Warn("instance cache store failed", "instance", name, "error", err)
		}
	}
	return id, nil
}

// Warm pre-populates the cache with a set of known instances
func (r *Registry) Warm(ctx context.Context, instances []domain.GameInstance) {
	if r.cache == nil {
		return
	}
	for _, inst := range instances {
		if err := r.cache.SetInstanceID(ctx, inst.Name, inst.ID); err != nil {
			r.logger.Warn("instance cache warm failed", "instance", inst.Name, "error", err)
		}
	}
}
