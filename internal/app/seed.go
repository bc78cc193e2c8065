package app

import (
	"context"

	"go.uber.org/zap"

	"retail-service/internal/adapters/repository"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/config"
	"retail-service/internal/service/identity"
)

// seedDemo creates a demo organization with an admin when the datastore is
// empty at boot. Harmless on every later boot: a non-empty store skips it.
func seedDemo(ctx context.Context, logger *zap.Logger, cfg *config.Config, identityService *identity.Service, repos *repository.Repositories) error {
	count, err := repos.Tenant.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("datastore not empty, skipping demo seed")
		return nil
	}

	session, err := identityService.Register(ctx, tenant.RegisterRequest{
		Subdomain:  "demo",
		Name:       "Demo Retail Ltd",
		OwnerEmail: "owner@demo.test",
		OwnerName:  "Demo Owner",
		Username:   "demo-admin",
		Password:   "demo-password",
	})
	if err != nil {
		return err
	}

	logger.Info("demo tenant seeded",
		zap.String("tenant_id", session.Tenant.ID),
		zap.String("subdomain", session.Tenant.Subdomain),
	)
	return nil
}
