package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
)

// Manager holds the live rooms by ID. Rooms are created on demand, removed
// on request, and reaped once idle.
type Manager struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	opts    Options
	regions func() []chizuquiz.Region
	logger  *slog.Logger
}

// NewManager uses opts as the template for every room. regions is called
// on each Create so catalog edits reach new rooms.
func NewManager(opts Options, regions func() []chizuquiz.Region) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	// Each room seeds its own source; a *rand.Rand is not goroutine safe.
	opts.Rand = nil
	return &Manager{
		rooms:   make(map[string]*Room),
		opts:    opts,
		regions: regions,
		logger:  opts.Logger,
	}
}

// Create starts a new room with a fresh session.
func (m *Manager) Create() (*Room, error) {
	opts := m.opts
	if m.regions != nil {
		opts.Quiz.Regions = m.regions()
	}

	r, err := New(uuid.NewString(), opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.rooms[r.ID] = r
	m.mu.Unlock()

	go r.Run()
	m.logger.Info("room created", "room_id", r.ID, "regions", len(opts.Quiz.Regions))
	return r, nil
}

func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Remove stops and forgets the room. It reports whether the room existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	r, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mu.Unlock()

	if ok {
		r.Stop()
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Sweep removes rooms with no player command since now-maxIdle.
func (m *Manager) Sweep(now time.Time, maxIdle time.Duration) int {
	m.mu.Lock()
	var stale []*Room
	for id, r := range m.rooms {
		if now.Sub(r.LastActive()) > maxIdle {
			stale = append(stale, r)
			delete(m.rooms, id)
		}
	}
	m.mu.Unlock()

	for _, r := range stale {
		r.Stop()
		m.logger.Info("room reaped", "room_id", r.ID)
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.Sweep(now, maxIdle)
		}
	}
}

// Close stops every room.
func (m *Manager) Close() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
	}
}
