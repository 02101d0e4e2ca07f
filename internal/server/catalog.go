package server

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
)

// Catalog is the in-memory region set new games draw from. Games already
// running keep the copy they started with.
type Catalog struct {
	mu      sync.RWMutex
	regions []chizuquiz.Region
}

func NewCatalog(regions []chizuquiz.Region) *Catalog {
	return &Catalog{regions: slices.Clone(regions)}
}

// Reload replaces the catalog with the store's contents.
func (c *Catalog) Reload(ctx context.Context, store Store) error {
	regions, err := store.ListRegions(ctx)
	if err != nil {
		return fmt.Errorf("loading regions: %w", err)
	}
	c.mu.Lock()
	c.regions = regions
	c.mu.Unlock()
	return nil
}

func (c *Catalog) Regions() []chizuquiz.Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.regions)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.regions)
}
