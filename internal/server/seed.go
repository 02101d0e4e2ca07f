package server

import (
	"context"
	"log/slog"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
)

// SeedRegions stores the default regions if the catalog is empty.
// Idempotent: does nothing once any region exists.
func SeedRegions(ctx context.Context, logger *slog.Logger, store Store) error {
	n, err := store.SeedRegions(ctx, chizuquiz.DefaultRegions())
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("region catalog seeded", "regions", n)
	}
	return nil
}
