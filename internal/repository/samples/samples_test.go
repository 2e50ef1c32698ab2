package samples

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nahlund/backend/tileserver/internal/geometry/interpolate"
	"github.com/nahlund/backend/tileserver/internal/tile"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func setupSQLiteSource(t *testing.T) *SQLiteSource {
	t.Helper()
	s, err := NewSQLiteSource(filepath.Join(t.TempDir(), "samples.db"), logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("NewSQLiteSource: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteFetchByDescendantTile(t *testing.T) {
	ctx := context.Background()
	s := setupSQLiteSource(t)

	inside := []interpolate.Sample{
		{Lon: 139.7671, Lat: 35.6812, Value: 1.5},
		{Lon: 139.7700, Lat: 35.6790, Value: 2.0},
	}
	outside := interpolate.Sample{Lon: 135.5023, Lat: 34.6937, Value: 9}

	for _, smp := range append(inside, outside) {
		if err := s.Insert(ctx, smp); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	parent := tile.At(tile.LonLat{Lon: inside[0].Lon, Lat: inside[0].Lat}, 12)
	if other := tile.At(tile.LonLat{Lon: inside[1].Lon, Lat: inside[1].Lat}, 12); other != parent {
		t.Fatalf("fixture samples fall in different tiles: %v %v", parent, other)
	}

	got, err := s.FetchSamples(ctx, parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(inside) {
		t.Fatalf("got %d samples, want %d: %+v", len(got), len(inside), got)
	}
	for _, g := range got {
		if g.Value == outside.Value {
			t.Fatalf("sample outside the tile returned: %+v", g)
		}
	}

	all, err := s.FetchSamples(ctx, tile.ID{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("root tile returned %d samples, want 3", len(all))
	}
}

func TestSQLiteFetchBelowIndexZoom(t *testing.T) {
	ctx := context.Background()
	s := setupSQLiteSource(t)

	smp := interpolate.Sample{Lon: 139.7671, Lat: 35.6812, Value: 3}
	if err := s.Insert(ctx, smp); err != nil {
		t.Fatal(err)
	}

	deep := tile.At(tile.LonLat{Lon: smp.Lon, Lat: smp.Lat}, 20)
	got, err := s.FetchSamples(ctx, deep)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d samples, want 1", len(got))
	}
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")
	for i := 0; i < 2; i++ {
		s, err := NewSQLiteSource(path, logger.NewNoOpLogger())
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		s.Close()
	}
}

func TestTilePath(t *testing.T) {
	tests := []struct {
		id   tile.ID
		want string
	}{
		{tile.ID{}, "(:Tile0{x:0,y:0})"},
		{tile.ID{X: 3, Y: 2, Z: 2}, "(:Tile0{x:0,y:0})-[:CHILD]->(:Tile1{x:1,y:1})-[:CHILD]->(:Tile2{x:3,y:2})"},
		{tile.ID{X: 5, Y: 6, Z: 3}, "(:Tile0{x:0,y:0})-[:CHILD]->(:Tile1{x:1,y:1})-[:CHILD]->(:Tile2{x:2,y:3})-[:CHILD]->(:Tile3{x:5,y:6})"},
	}

	for _, tt := range tests {
		if got := tilePath(tt.id); got != tt.want {
			t.Errorf("tilePath(%v) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestSamplesQuery(t *testing.T) {
	want := "MATCH (:Tile0{x:0,y:0})-[:CHILD]->(:Tile1{x:1,y:0})-[:MEMBER]->(n:RiverNode)-[:WATER_LEVEL]->(wl:WaterLevel)\n" +
		"RETURN n.location AS location, wl.value AS water_level"
	if got := samplesQuery(tile.ID{X: 1, Y: 0, Z: 1}); got != want {
		t.Fatalf("samplesQuery = %q", got)
	}
}

func TestRecordSample(t *testing.T) {
	row := func(values map[string]any) func(string) (any, bool) {
		return func(k string) (any, bool) {
			v, ok := values[k]
			return v, ok
		}
	}

	got, err := recordSample(row(map[string]any{
		"location":    neo4j.Point2D{X: 139.7, Y: 35.6, SpatialRefId: 4326},
		"water_level": 1.25,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if got != (interpolate.Sample{Lon: 139.7, Lat: 35.6, Value: 1.25}) {
		t.Fatalf("sample = %+v", got)
	}

	got, err = recordSample(row(map[string]any{
		"location":    neo4j.Point2D{X: 1, Y: 2},
		"water_level": int64(3),
	}))
	if err != nil || got.Value != 3 {
		t.Fatalf("integer level = %+v, %v", got, err)
	}

	bad := []map[string]any{
		{"water_level": 1.0},
		{"location": "nowhere", "water_level": 1.0},
		{"location": neo4j.Point2D{}},
		{"location": neo4j.Point2D{}, "water_level": "high"},
	}
	for i, values := range bad {
		if _, err := recordSample(row(values)); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
