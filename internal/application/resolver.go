package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/eugenenazirov/minimee/internal/hooks"
	"github.com/eugenenazirov/minimee/internal/settings"
)

// Resolver applies the hook registrations a resolution asks for, so later
// sessions see the binding and stop asking.
type Resolver struct {
	inner    *settings.Resolver
	registry *hooks.Registry
	logger   *zap.Logger
}

// NewResolver wraps inner, applying registrations to registry.
func NewResolver(inner *settings.Resolver, registry *hooks.Registry, logger *zap.Logger) *Resolver {
	return &Resolver{inner: inner, registry: registry, logger: logger}
}

// Resolve resolves settings for sessionID.
func (r *Resolver) Resolve(ctx context.Context, sessionID string) settings.Resolution {
	res := r.inner.Resolve(ctx, sessionID)
	if r.registry.Apply(res.Registration, nil) {
		r.logger.Info("registered extension hook",
			zap.String("hook", res.Registration.Hook),
			zap.String("class", res.Registration.Class),
			zap.Int("priority", res.Registration.Priority),
		)
	}
	return res
}
