package samples

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nahlund/backend/tileserver/internal/geometry/interpolate"
	"github.com/nahlund/backend/tileserver/internal/tile"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/pressly/goose/v3"
)

// IndexZoom is the zoom level of the tile coordinates stored with each sample.
const IndexZoom = 18

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteSource struct {
	db     *sql.DB
	logger logger.Logger
}

var _ Source = (*SQLiteSource)(nil)

func NewSQLiteSource(path string, l logger.Logger) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteSource{
		db:     db,
		logger: l,
	}

	err = s.runMigrations()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sample store: %w", err)
	}

	l.Info("sqlite sample store initialized", "path", path)

	return s, nil
}

func (s *SQLiteSource) runMigrations() error {
	goose.SetBaseFS(migrations)

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	err = goose.Up(s.db, "migrations")
	if err != nil {
		return err
	}

	return nil
}

// FetchSamples selects the samples whose index tile descends from id. Tiles
// deeper than IndexZoom are answered from their IndexZoom ancestor.
func (s *SQLiteSource) FetchSamples(ctx context.Context, id tile.ID) ([]interpolate.Sample, error) {
	if id.Z > IndexZoom {
		id = id.Ancestor(IndexZoom)
	}
	shift := IndexZoom - int(id.Z)

	s.logger.Debug("sqlite fetch samples", "z", id.Z, "x", id.X, "y", id.Y)

	query := `SELECT longitude, latitude, water_level
	FROM river_samples
	WHERE (tile_x >> ?) = ? AND (tile_y >> ?) = ?`

	rows, err := s.db.QueryContext(ctx, query, shift, id.X, shift, id.Y)
	if err != nil {
		s.logger.Error("sqlite fetch samples failed", "z", id.Z, "x", id.X, "y", id.Y, "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []interpolate.Sample
	for rows.Next() {
		var smp interpolate.Sample
		if err := rows.Scan(&smp.Lon, &smp.Lat, &smp.Value); err != nil {
			return nil, err
		}
		out = append(out, smp)
	}

	return out, rows.Err()
}

// Insert records a measurement and indexes it by its IndexZoom tile.
func (s *SQLiteSource) Insert(ctx context.Context, smp interpolate.Sample) error {
	id := tile.At(tile.LonLat{Lon: smp.Lon, Lat: smp.Lat}, IndexZoom)

	query := `INSERT INTO river_samples (longitude, latitude, water_level, tile_x, tile_y)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, smp.Lon, smp.Lat, smp.Value, id.X, id.Y)
	if err != nil {
		s.logger.Error("sqlite insert sample failed", "lon", smp.Lon, "lat", smp.Lat, "error", err)
		return err
	}

	return nil
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
