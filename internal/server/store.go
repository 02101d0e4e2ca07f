package server

import (
	"context"
	"errors"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/room"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrLastRegion is returned when a delete would empty the catalog.
	ErrLastRegion = errors.New("last region")
)

// ResultItem is one finished session in the history.
type ResultItem struct {
	ID         string `json:"id"`
	GameID     string `json:"gameId"`
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	FinishedAt string `json:"finishedAt"`
}

type Store interface {
	ListRegions(ctx context.Context) ([]chizuquiz.Region, error)
	GetRegion(ctx context.Context, id string) (chizuquiz.Region, error)
	CreateRegion(ctx context.Context, r chizuquiz.Region) (chizuquiz.Region, error)
	UpdateRegion(ctx context.Context, r chizuquiz.Region) (chizuquiz.Region, error)
	// DeleteRegion refuses to remove the only remaining region.
	DeleteRegion(ctx context.Context, id string) error
	SeedRegions(ctx context.Context, regions []chizuquiz.Region) (int, error)

	RecordResult(ctx context.Context, res room.Result) error
	ListResults(ctx context.Context, limit int) ([]ResultItem, error)
}
