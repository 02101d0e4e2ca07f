package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/geo"
	"github.com/playperu/chizuquiz/internal/room"
)

// regionDoc is the JSONB document stored per region.
type regionDoc struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Hint        string  `json:"hint"`
	ToleranceKm float64 `json:"toleranceKm,omitempty"`
}

func toDoc(r chizuquiz.Region) regionDoc {
	return regionDoc{
		ID:          r.ID,
		Name:        r.Name,
		Lat:         r.Coords.Lat,
		Lng:         r.Coords.Lng,
		Hint:        r.Hint,
		ToleranceKm: r.ToleranceKm,
	}
}

func (d regionDoc) region() chizuquiz.Region {
	return chizuquiz.Region{
		ID:          d.ID,
		Name:        d.Name,
		Coords:      geo.Point{Lat: d.Lat, Lng: d.Lng},
		Hint:        d.Hint,
		ToleranceKm: d.ToleranceKm,
	}
}

// SQLiteStore implements Store on the migrated schema.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) ListRegions(ctx context.Context) ([]chizuquiz.Region, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM regions ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []chizuquiz.Region
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var d regionDoc
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return nil, err
		}
		regions = append(regions, d.region())
	}
	return regions, rows.Err()
}

func (s *SQLiteStore) GetRegion(ctx context.Context, id string) (chizuquiz.Region, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM regions WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return chizuquiz.Region{}, ErrNotFound
	}
	if err != nil {
		return chizuquiz.Region{}, err
	}
	var d regionDoc
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return chizuquiz.Region{}, err
	}
	return d.region(), nil
}

func (s *SQLiteStore) CreateRegion(ctx context.Context, r chizuquiz.Region) (chizuquiz.Region, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	data, err := json.Marshal(toDoc(r))
	if err != nil {
		return chizuquiz.Region{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO regions (id, name, data) VALUES (?, ?, jsonb(?))`,
		r.ID, r.Name, string(data),
	)
	if err != nil {
		return chizuquiz.Region{}, conflictErr(err)
	}
	return r, nil
}

func (s *SQLiteStore) UpdateRegion(ctx context.Context, r chizuquiz.Region) (chizuquiz.Region, error) {
	data, err := json.Marshal(toDoc(r))
	if err != nil {
		return chizuquiz.Region{}, err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE regions SET name = ?, data = jsonb(?) WHERE id = ?`,
		r.Name, string(data), r.ID,
	)
	if err != nil {
		return chizuquiz.Region{}, conflictErr(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return chizuquiz.Region{}, ErrNotFound
	}
	return r, nil
}

// DeleteRegion removes the region unless it is the last one. The count and
// the delete run as one statement so concurrent deletes cannot both pass.
func (s *SQLiteStore) DeleteRegion(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM regions
		WHERE id = ? AND (SELECT COUNT(*) FROM regions) > 1
	`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM regions WHERE id = ?)`, id,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 1 {
		return ErrLastRegion
	}
	return ErrNotFound
}

// SeedRegions inserts regions only when the catalog is empty. It returns
// how many were inserted.
func (s *SQLiteStore) SeedRegions(ctx context.Context, regions []chizuquiz.Region) (int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM regions`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	for _, r := range regions {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		data, err := json.Marshal(toDoc(r))
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO regions (id, name, data) VALUES (?, ?, jsonb(?))`,
			r.ID, r.Name, string(data),
		); err != nil {
			return 0, fmt.Errorf("seeding region %q: %w", r.Name, err)
		}
	}
	return len(regions), tx.Commit()
}

func (s *SQLiteStore) RecordResult(ctx context.Context, res room.Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_results (id, room_id, score, total, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), res.RoomID, res.Score, res.Total, formatTime(res.FinishedAt))
	return err
}

func (s *SQLiteStore) ListResults(ctx context.Context, limit int) ([]ResultItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, score, total, finished_at
		FROM session_results
		ORDER BY finished_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ResultItem
	for rows.Next() {
		var (
			it       ResultItem
			finished dbTime
		)
		if err := rows.Scan(&it.ID, &it.GameID, &it.Score, &it.Total, &finished); err != nil {
			return nil, err
		}
		it.FinishedAt = formatTime(time.Time(finished))
		items = append(items, it)
	}
	return items, rows.Err()
}

const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// dbTime scans a timestamp column. libSQL hands back timestamp-shaped TEXT
// as time.Time, other drivers as the stored string.
type dbTime time.Time

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = dbTime(v)
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("scanning %T into timestamp", src)
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	*t = dbTime(parsed)
	return nil
}

func conflictErr(err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

var _ Store = (*SQLiteStore)(nil)
